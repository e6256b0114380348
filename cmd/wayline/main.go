package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wayline/internal/app"
	"wayline/internal/db"
	"wayline/internal/domain"
	"wayline/internal/engine"
	"wayline/internal/migrate"
	"wayline/internal/repo"
	"wayline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "wayline",
	Short: "Wayline CLI",
	Long: `Wayline runs gated narrative sessions over an authored content pack.
Core concepts:
- Workspace: your .wayline directory with the session database; content lives in wayline.yml.
- Session: one playthrough; resources, narrative progress, flags and the delivery queue.
- Catalog: authored actions with OR-path requirements and a single cost/reward consequence.
- Scaling: NPC disposition and location tier shift thresholds and costs before anything is shown or paid.
- Narratives: authored step sequences that gate which action categories are available.
- Delivery queue: the bounded commitment list; patrons can force the front and evict the tail.
- Event log: diary of everything a session did, view with 'wayline log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("WAYLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("session", "s", "", "session id")
	rootCmd.PersistentFlags().String("content", "", "content file (overrides workspace wayline.yml)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
	_ = viper.BindPFlag("content", rootCmd.PersistentFlags().Lookup("content"))
}

func registerCommands() {
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(actionsCmd())
	rootCmd.AddCommand(actCmd())
	rootCmd.AddCommand(narrativeCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(flagsCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Manage sessions"}
	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionDeleteCmd())
	return cmd
}

func sessionCreateCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				snap, err := e.CreateSession(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(snap)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (generated when empty)")
	return cmd
}

func sessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a session snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.GetSession(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Snapshot())
			})
		},
	}
	return cmd
}

func sessionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListSessions(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Created", "Updated"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.CreatedAt, s.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func sessionDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DeleteSession(ctx, id)
			})
		},
	}
	return cmd
}

func actionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List available actions with scaled values",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				views, err := e.ListActions(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(views)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Category", "Satisfied", "Coins", "Resolve"})
				for _, v := range views {
					tw.AppendRow(table.Row{
						v.Action.ID, v.Action.Name, v.Action.Category,
						v.Satisfied, v.ScaledConsequence.Coins, v.ScaledConsequence.Resolve,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func actCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "act <action-id>",
		Short: "Attempt an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := e.PerformAction(ctx, id, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	return cmd
}

func narrativeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "narrative", Short: "Narrative progress"}
	cmd.AddCommand(narrativeStartCmd())
	cmd.AddCommand(narrativeStatusCmd())
	cmd.AddCommand(narrativeGuidanceCmd())
	return cmd
}

func narrativeStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <narrative-id>",
		Short: "Start a narrative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.StartNarrative(ctx, id, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Snapshot())
			})
		},
	}
	return cmd
}

func narrativeStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show narrative progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := e.NarrativeStatuses(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Active", "Complete", "Step", "Total"})
				for _, st := range res {
					tw.AppendRow(table.Row{st.NarrativeID, st.Title, st.Active, st.Complete, st.StepIndex, st.TotalSteps})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func narrativeGuidanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guidance",
		Short: "Show guidance text for active steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				lines, err := e.Guidance(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(lines)
				}
				for _, line := range lines {
					fmt.Println(line)
				}
				return nil
			})
		},
	}
	return cmd
}

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Delivery queue"}
	cmd.AddCommand(queueShowCmd())
	cmd.AddCommand(queueAcceptCmd())
	cmd.AddCommand(queueForceCmd())
	cmd.AddCommand(queueReorderCmd())
	cmd.AddCommand(queueDeliverCmd())
	return cmd
}

func queueShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the queue in position order",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.GetSession(ctx, id)
				if err != nil {
					return err
				}
				items := s.Queue.Items()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Pos", "Sender", "Recipient", "Privileged"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.QueuePosition, it.Sender, it.Recipient, it.Privileged})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func queueAcceptCmd() *cobra.Command {
	var sender, recipient, description string
	var preferred int
	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Accept a delivery commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sender == "" || recipient == "" {
				return fmt.Errorf("--sender and --recipient required")
			}
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				item := domain.DeliveryItem{
					ID:                uuid.NewString(),
					Sender:            sender,
					Recipient:         recipient,
					Description:       description,
					PreferredPosition: preferred,
				}
				s, err := e.AcceptDelivery(ctx, id, item)
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Queue.Items())
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "sending npc")
	cmd.Flags().StringVar(&recipient, "recipient", "", "receiving npc")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&preferred, "position", 0, "preferred position (leverage insertion)")
	return cmd
}

func queueForceCmd() *cobra.Command {
	var sender, recipient string
	cmd := &cobra.Command{
		Use:   "force",
		Short: "Privileged front insertion",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sender == "" || recipient == "" {
				return fmt.Errorf("--sender and --recipient required")
			}
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				item := domain.DeliveryItem{
					ID:        uuid.NewString(),
					Sender:    sender,
					Recipient: recipient,
				}
				evicted, err := e.ForceDeliveryFront(ctx, id, item, domain.Consequence{})
				if err != nil {
					return err
				}
				if evicted != nil {
					fmt.Printf("evicted %s (%s -> %s)\n", evicted.ID, evicted.Sender, evicted.Recipient)
				}
				s, err := e.GetSession(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Queue.Items())
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "sending patron")
	cmd.Flags().StringVar(&recipient, "recipient", "", "receiving npc")
	return cmd
}

func queueReorderCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Move a queued delivery between positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 1 || to < 1 {
				return fmt.Errorf("--from and --to required")
			}
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.ReorderDelivery(ctx, id, from, to)
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Queue.Items())
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "current position")
	cmd.Flags().IntVar(&to, "to", 0, "target position")
	return cmd
}

func queueDeliverCmd() *cobra.Command {
	var position, coins int
	cmd := &cobra.Command{
		Use:   "deliver",
		Short: "Complete the delivery at a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			if position < 1 {
				return fmt.Errorf("--position required")
			}
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := e.CompleteDelivery(ctx, id, position, domain.Consequence{Coins: coins})
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().IntVar(&position, "position", 0, "queue position")
	cmd.Flags().IntVar(&coins, "coins", 0, "coin reward")
	return cmd
}

func flagsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "flags", Short: "Session flags and counters"}
	cmd.AddCommand(flagsShowCmd())
	cmd.AddCommand(flagsSetCmd())
	return cmd
}

func flagsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show flags and counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.GetSession(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Flags.Snapshot())
			})
		},
	}
	return cmd
}

func flagsSetCmd() *cobra.Command {
	var counter int
	var clear bool
	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Set a flag or counter and re-check narratives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireSession()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				var s *engine.Session
				if cmd.Flags().Changed("counter") {
					s, err = e.SetCounter(ctx, id, args[0], counter)
				} else {
					s, err = e.SetFlag(ctx, id, args[0], !clear)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(s.Flags.Snapshot())
			})
		},
	}
	cmd.Flags().IntVar(&counter, "counter", 0, "set as counter with this value")
	cmd.Flags().BoolVar(&clear, "clear", false, "clear instead of set")
	return cmd
}

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "content", Short: "Manage the content pack"}
	cmd.AddCommand(contentInitCmd())
	cmd.AddCommand(contentValidateCmd())
	cmd.AddCommand(contentExportCmd())
	return cmd
}

func contentInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default content template to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.InitContent(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	return cmd
}

func contentValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the active content pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.ResolveContent(viper.GetString("workspace"), viper.GetString("content"))
			if err != nil {
				return err
			}
			fmt.Printf("content %s ok: %d actions, %d npcs, %d locations, %d narratives\n",
				c.World.ID, len(c.Catalog), len(c.NPCs), len(c.Locations), len(c.Narratives))
			return nil
		},
	}
	return cmd
}

func contentExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the active content pack as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.ResolveContent(viper.GetString("workspace"), viper.GetString("content"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.LatestEvents(ctx, n, viper.GetString("session"), evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	cmd.AddCommand(apikeyCreateCmd())
	cmd.AddCommand(apikeyListCmd())
	cmd.AddCommand(apikeyDeleteCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var actor, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (prints the raw key once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				return fmt.Errorf("--actor required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw := uuid.NewString() + uuid.NewString()
				key := domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: actor,
					Name:    name,
					KeyHash: repo.HashAPIKey(raw),
				}
				if err := r.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				fmt.Printf("id: %s\nkey: %s\n", key.ID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor id")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var noAuth bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			c, err := app.ResolveContent(workspace, viper.GetString("content"))
			if err != nil {
				return err
			}
			e := engine.New(conn, c)
			authCfg := server.AuthConfig{
				JWTSecret: os.Getenv("WAYLINE_JWT_SECRET"),
				Disabled:  noAuth,
			}
			if !noAuth && authCfg.JWTSecret == "" {
				return fmt.Errorf("WAYLINE_JWT_SECRET is required for bearer auth (or pass --no-auth for local play)")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Wayline API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "disable authentication")
	return cmd
}

// --- helpers ---

func requireSession() (string, error) {
	id := strings.TrimSpace(viper.GetString("session"))
	if id == "" {
		return "", fmt.Errorf("session not specified; use --session or set WAYLINE_SESSION")
	}
	return id, nil
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	c, err := app.ResolveContent(workspace, viper.GetString("content"))
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, c))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
