package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playperu/tabletop/internal/client"
	"github.com/playperu/tabletop/internal/playground"
)

// withSession connects, waits for the first snapshot and runs fn. It then
// syncs with the server so every frame fn sent is known to be applied, and
// reports the first rejection the server sent back.
func withSession(cmd *cobra.Command, cfg *Config, fn func(*client.Session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	rejected := make(chan error, 16)
	s := client.New(client.Options{
		URL:         cfg.server,
		MaxAttempts: cfg.attempts,
		Delay:       cfg.delay,
		Logger:      cfg.logger(cmd.ErrOrStderr()),
		Handlers: client.Handlers{
			OnError: func(err error) {
				var se *client.ServerError
				if errors.As(err, &se) {
					select {
					case rejected <- err:
					default:
					}
				}
			},
		},
	})
	s.Connect(ctx)
	defer s.Disconnect()

	if err := s.WaitSynced(ctx); err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.server, err)
	}

	if err := fn(s); err != nil {
		return err
	}

	if err := s.Sync(ctx); err != nil {
		return fmt.Errorf("waiting for the server: %w", err)
	}

	select {
	case err := <-rejected:
		return err
	default:
		return nil
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStateCmd(cfg *Config) *cobra.Command {
	var ordered bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the current playground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st playground.State
			err := withSession(cmd, cfg, func(s *client.Session) error {
				st = s.Mirror().Snapshot()
				return nil
			})
			if err != nil {
				return err
			}
			if !ordered {
				return printJSON(cmd, st)
			}

			out := cmd.OutOrStdout()
			for _, e := range playground.RenderOrder(st.Elements) {
				label := ""
				switch e.Type {
				case playground.TypeText:
					label = strconv.Quote(e.Text.Text)
				case playground.TypeCard:
					label = e.Card.Template
					if t, values, ok := playground.ResolveCard(e, st.Templates); ok {
						label = t.Title
						for _, v := range values {
							label += fmt.Sprintf(" %s=%g", v.Label, v.Total)
						}
					} else {
						label += " (missing template)"
					}
				}
				fmt.Fprintf(out, "%4d  %-40s %-5s (%g, %g)  %s\n",
					e.RenderingPriority, e.ID, e.Type, e.X, e.Y, label)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ordered, "ordered", false, "list elements bottom to top instead of printing JSON")
	return cmd
}

func newWatchCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream playground updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			event := func(typ string, payload any) {
				_ = enc.Encode(map[string]any{"type": typ, "payload": payload})
			}

			s := client.New(client.Options{
				URL:         cfg.server,
				MaxAttempts: cfg.attempts,
				Delay:       cfg.delay,
				Logger:      cfg.logger(cmd.ErrOrStderr()),
				Handlers: client.Handlers{
					OnState:     func(st playground.State) { event("playgroundState", st) },
					OnElements:  func(m map[string]playground.Element) { event("elementState", m) },
					OnRemove:    func(ids []string) { event("removeElementState", ids) },
					OnTemplates: func(m map[string]playground.Template) { event("templateState", m) },
					OnStatus:    func(st client.Status) { event("status", st.String()) },
					OnError:     func(err error) { event("error", err.Error()) },
				},
			})
			s.Connect(cmd.Context())
			defer s.Disconnect()

			select {
			case <-cmd.Context().Done():
				return nil
			case <-s.Done():
				return fmt.Errorf("%w: %s", client.ErrClosed, s.LastError())
			}
		},
	}
}

func newAddTextCmd(cfg *Config) *cobra.Command {
	var (
		id              string
		x, y            float64
		priority        int
		fontSize        float64
		fontWeight      string
		fontFamily      string
		color           string
		backgroundColor string
	)

	cmd := &cobra.Command{
		Use:   "add-text TEXT",
		Short: "Place a text element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = client.NewElementID(playground.TypeText)
			}
			e := playground.NewText(id, x, y, priority, args[0])
			if cmd.Flags().Changed("font-size") {
				e.Text.FontSize = &fontSize
			}
			e.Text.FontWeight = fontWeight
			e.Text.FontFamily = fontFamily
			e.Text.Color = color
			e.Text.BackgroundColor = backgroundColor

			err := withSession(cmd, cfg, func(s *client.Session) error {
				return s.AddElement(e)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&id, "id", "", "element id (default: generated)")
	fs.Float64Var(&x, "x", 0, "horizontal position")
	fs.Float64Var(&y, "y", 0, "vertical position")
	fs.IntVar(&priority, "priority", 0, "rendering priority; higher draws on top")
	fs.Float64Var(&fontSize, "font-size", 16, "font size")
	fs.StringVar(&fontWeight, "font-weight", "", "font weight: normal, bold or 100-900")
	fs.StringVar(&fontFamily, "font-family", "", "font family")
	fs.StringVar(&color, "color", "", "text color")
	fs.StringVar(&backgroundColor, "background-color", "", "background color")
	return cmd
}

func newMoveCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move ID X Y",
		Short: "Move an element",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parsing x: %w", err)
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("parsing y: %w", err)
			}
			return withSession(cmd, cfg, func(s *client.Session) error {
				return s.PatchElement(args[0], func(e *playground.Element) {
					e.X, e.Y = x, y
				}, true)
			})
		},
	}
	// Coordinates may be negative; stop flag parsing at the first argument
	// so "-3.5" is not read as a shorthand flag.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newPriorityCmd(cfg *Config, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(s *client.Session) error {
				if name == "raise" {
					return s.IncreasePriority(args[0])
				}
				return s.DecreasePriority(args[0])
			})
		},
	}
}

func newDeleteElementCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-element ID",
		Short: "Remove an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(s *client.Session) error {
				return s.DeleteElement(args[0])
			})
		},
	}
}

func newClearCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every element; templates are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(s *client.Session) error {
				return s.ClearElements()
			})
		},
	}
}

func newAddTemplateCmd(cfg *Config) *cobra.Command {
	var (
		t      playground.Template
		values []string
	)

	cmd := &cobra.Command{
		Use:   "add-template",
		Short: "Create or replace a card template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if t.ID == "" {
				t.ID = client.NewTemplateID()
			}
			for _, raw := range values {
				v, err := parseCardValue(raw)
				if err != nil {
					return err
				}
				t.Values = append(t.Values, v)
			}

			err := withSession(cmd, cfg, func(s *client.Session) error {
				return s.AddTemplate(t)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&t.ID, "id", "", "template id (default: generated)")
	fs.StringVar(&t.Title, "title", "", "card title")
	fs.StringVar(&t.Description, "description", "", "card description")
	fs.StringVar(&t.Color, "color", "", "card color")
	fs.StringVar(&t.TopRightLabel, "top-right-label", "", "label shown in the top right corner")
	fs.StringSliceVar(&t.Labels, "label", nil, "tag shown on the card (repeatable)")
	fs.StringArrayVar(&values, "value", nil, "card value as label=number or label=number:icon (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// parseCardValue reads "label=number" with an optional ":icon" suffix.
func parseCardValue(raw string) (playground.CardValue, error) {
	label, rest, ok := strings.Cut(raw, "=")
	if !ok || label == "" {
		return playground.CardValue{}, fmt.Errorf("invalid value %q: want label=number", raw)
	}
	number, icon, _ := strings.Cut(rest, ":")
	n, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return playground.CardValue{}, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	return playground.CardValue{Label: label, Value: n, Icon: icon}, nil
}

func newDeleteTemplateCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-template ID",
		Short: "Remove a card template; cards using it stay in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(s *client.Session) error {
				return s.DeleteTemplate(args[0])
			})
		},
	}
}
