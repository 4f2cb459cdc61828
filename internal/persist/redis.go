package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/tabletop/internal/playground"
)

const (
	fieldElements  = "elements"
	fieldTemplates = "templates"
)

// Redis stores the document as one hash with an elements field and a
// templates field, each holding a JSON object.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) FindDocument(ctx context.Context) (playground.State, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return playground.State{}, false, fmt.Errorf("reading %s: %w", r.key, err)
	}
	if len(fields) == 0 {
		return playground.State{}, false, nil
	}

	st := playground.NewState()
	if raw, ok := fields[fieldElements]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Elements); err != nil {
			return playground.State{}, false, fmt.Errorf("decoding stored elements: %w", err)
		}
	}
	if raw, ok := fields[fieldTemplates]; ok {
		if err := json.Unmarshal([]byte(raw), &st.Templates); err != nil {
			return playground.State{}, false, fmt.Errorf("decoding stored templates: %w", err)
		}
	}
	return st.Clone(), true, nil
}

func (r *Redis) CreateDocument(ctx context.Context, st playground.State) error {
	elements, templates, err := encodeState(st)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, r.key, fieldElements, elements)
		pipe.HSetNX(ctx, r.key, fieldTemplates, templates)
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) ReplaceFields(ctx context.Context, f Fields) error {
	values := make(map[string]any, 2)
	if f.Elements != nil {
		data, err := json.Marshal(*f.Elements)
		if err != nil {
			return fmt.Errorf("encoding elements: %w", err)
		}
		values[fieldElements] = string(data)
	}
	if f.Templates != nil {
		data, err := json.Marshal(*f.Templates)
		if err != nil {
			return fmt.Errorf("encoding templates: %w", err)
		}
		values[fieldTemplates] = string(data)
	}
	if len(values) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, values)
		pipe.HSetNX(ctx, r.key, fieldElements, "{}")
		pipe.HSetNX(ctx, r.key, fieldTemplates, "{}")
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ Adapter = (*Redis)(nil)
