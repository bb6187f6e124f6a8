package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"marketmasters/internal/app"
	cl "marketmasters/internal/cli"
	"marketmasters/internal/config"
	"marketmasters/internal/game"
	"marketmasters/internal/tui"
)

func main() {
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	apiBase := cfg.APIBaseURL
	color.NoColor = color.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))

	root := &cobra.Command{
		Use:          "mm",
		Short:        "Market Masters, a stock market idle game",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "mm-api base URL")

	root.AddCommand(
		newPlayCmd(&cfg),
		newDashCmd(&apiBase),
		newStocksCmd(&apiBase),
		newOrderCmd(&apiBase, game.SideBuy),
		newOrderCmd(&apiBase, game.SideSell),
		newSellAllCmd(&apiBase),
		newOrdersCmd(&apiBase),
		newMissionsCmd(&apiBase),
		newClaimCmd(&apiBase),
		newAchievementsCmd(&apiBase),
		newShopCmd(&apiBase),
		newPrestigeCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newNewsCmd(&apiBase),
		newWatchCmd(&apiBase),
		newResetCmd(&apiBase),
		newProfileCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

// resolveSymbol accepts a symbol or a fuzzy name such as "zoom".
func resolveSymbol(query string) (string, error) {
	in, err := game.LookupInstrument(query)
	if err != nil {
		return "", err
	}
	return in.Symbol, nil
}

func newPlayCmd(cfg *config.CLIConfig) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in this terminal with a local save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("play needs an interactive terminal")
			}
			storeCfg := cfg.Store
			if profile != "" {
				storeCfg.Profile = profile
			}
			player, err := cl.TouchProfile()
			if err != nil {
				printWarn("could not update profile: " + err.Error())
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if path := strings.TrimSpace(os.Getenv("MM_LOG_FILE")); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			feed := tui.NewFeed()
			session, err := app.Open(ctx, app.Options{
				Store: storeCfg,
				Game:  cfg.Game,
				Sinks: []game.Notifier{feed},
				Quiet: true,
			}, logger)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				session.Close(closeCtx)
			}()
			if err := session.StartLoops(app.Hooks{OnTick: feed.Tick, OnCountdown: feed.Countdown}); err != nil {
				return err
			}

			model := tui.New(ctx, session.Game, feed, player.DisplayName())
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "save profile to play (default from MM_PROFILE)")
	return cmd
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show cash, holdings and progression",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Dashboard(ctx)
			if err != nil {
				return err
			}
			renderDashboard(out)
			return nil
		},
	}
}

func newStocksCmd(apiBase *string) *cobra.Command {
	var watched bool
	var movers int
	cmd := &cobra.Command{
		Use:     "stocks [symbol|name]",
		Aliases: []string{"stock", "market"},
		Short:   "List the market or inspect one stock",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := newClient(apiBase)
			switch {
			case len(args) == 1:
				out, err := client.StockDetail(ctx, args[0])
				if err != nil {
					return err
				}
				renderStockDetail(out)
			case movers > 0:
				out, err := client.TopMovers(ctx, movers)
				if err != nil {
					return err
				}
				renderStocksList(out)
			default:
				out, err := client.ListStocks(ctx, watched)
				if err != nil {
					return err
				}
				renderStocksList(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watched, "watched", false, "only show watchlist stocks")
	cmd.Flags().IntVar(&movers, "movers", 0, "show the N biggest movers")
	return cmd
}

func newOrderCmd(apiBase *string, side game.Side) *cobra.Command {
	verb := string(side)
	return &cobra.Command{
		Use:   verb + " <symbol> [quantity]",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " shares at the current price",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := resolveSymbol(args[0])
			if err != nil {
				return err
			}
			qty := int64(1)
			if len(args) == 2 {
				qty, err = strconv.ParseInt(args[1], 10, 64)
				if err != nil || qty < 1 {
					return fmt.Errorf("quantity must be a whole number of at least 1")
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).PlaceOrder(ctx, symbol, side, qty)
			if err != nil {
				return err
			}
			renderOrderResult(out)
			return nil
		},
	}
}

func newSellAllCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell-all <symbol>",
		Short: "Sell every share of a stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := resolveSymbol(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).SellAll(ctx, symbol)
			if err != nil {
				return err
			}
			renderOrderResult(out)
			return nil
		},
	}
}

func newOrdersCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show recent orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Orders(ctx, limit)
			if err != nil {
				return err
			}
			renderOrders(out)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of orders to show")
	return cmd
}

func newMissionsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "missions",
		Short: "Show today's missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Missions(ctx)
			if err != nil {
				return err
			}
			renderMissions(out)
			return nil
		},
	}
}

func newClaimCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <index>",
		Short: "Claim a completed mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("mission index must be a number")
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).ClaimMission(ctx, index)
			if err != nil {
				return err
			}
			printSuccess(out.Message)
			return nil
		},
	}
}

func newAchievementsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "Show achievements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Achievements(ctx)
			if err != nil {
				return err
			}
			renderAchievements(out)
			return nil
		},
	}
}

func newShopCmd(apiBase *string) *cobra.Command {
	shop := &cobra.Command{
		Use:   "shop",
		Short: "List shop items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Shop(ctx)
			if err != nil {
				return err
			}
			renderShop(out)
			return nil
		},
	}
	shop.AddCommand(&cobra.Command{
		Use:   "buy <item-id>",
		Short: "Buy a shop item with coins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Purchase(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess(out.Message)
			return nil
		},
	})
	return shop
}

func newPrestigeCmd(apiBase *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "prestige",
		Short: "Reset progress for legacy points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("Prestige resets level, XP, coins and achievements. Continue?") {
				printInfo("Cancelled.")
				return nil
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Prestige(ctx)
			if err != nil {
				return err
			}
			printSuccess(out.Message)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	board := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show this season's top scores",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(out)
			return nil
		},
	}
	board.AddCommand(&cobra.Command{
		Use:   "save [name]",
		Short: "Save your current net worth to the leaderboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				p, err := cl.LoadProfile()
				if err != nil {
					return err
				}
				name = p.DisplayName()
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			entry, err := newClient(apiBase).SaveScore(ctx, name)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Saved %s with %s", entry.Name, money(entry.Value)))
			return nil
		},
	})
	return board
}

func newNewsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Show recent market news",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).News(ctx)
			if err != nil {
				return err
			}
			renderNews(out)
			return nil
		},
	}
}

func newWatchCmd(apiBase *string) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "watch [symbol]",
		Short: "Show or edit the watchlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := newClient(apiBase)
			var (
				symbols []string
				err     error
			)
			switch {
			case len(args) == 0:
				symbols, err = client.Watchlist(ctx)
			case remove:
				symbols, err = client.Unwatch(ctx, strings.ToUpper(args[0]))
			default:
				var symbol string
				if symbol, err = resolveSymbol(args[0]); err == nil {
					symbols, err = client.Watch(ctx, symbol)
				}
			}
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				printInfo("Watchlist is empty.")
				return nil
			}
			printInfo("Watching: " + strings.Join(symbols, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the symbol instead of adding it")
	return cmd
}

func newResetCmd(apiBase *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start a new game (wipes the save, keeps the leaderboard)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("This wipes your save. Continue?") {
				printInfo("Cancelled.")
				return nil
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := newClient(apiBase).Reset(ctx)
			if err != nil {
				return err
			}
			printSuccess("New game started.")
			renderDashboard(out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [name]",
		Short: "Show or set your leaderboard name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cl.LoadProfile()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				p.Name = strings.TrimSpace(args[0])
				if err := cl.SaveProfile(p); err != nil {
					return err
				}
				printSuccess("Leaderboard name set to " + p.DisplayName())
				return nil
			}
			printInfo("Name: " + p.DisplayName())
			if !p.LastPlayed.IsZero() {
				printInfo("Last played: " + p.LastPlayed.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
