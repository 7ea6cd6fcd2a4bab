package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockkidz/internal/account"
	"stockkidz/internal/client"
	"stockkidz/internal/config"
	"stockkidz/internal/growth"
	"stockkidz/internal/localstore"
	"stockkidz/internal/session"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "skz",
		Short:        "Stock Kidz trading game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newDashCmd(&apiBase),
		newWatchCmd(&apiBase, cfg.PricePollEvery),
		newBuyCmd(&apiBase),
		newSellCmd(&apiBase),
		newStocksCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newNewsCmd(&apiBase),
		newHistoryCmd(),
		newGrowthCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newAPIClient(apiBase *string) *client.Client {
	return client.New(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Stock Kidz account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			api := newAPIClient(apiBase)
			if err := api.Signup(ctx, username, password); err != nil {
				if client.IsStatus(err, http.StatusConflict) {
					printError("That username is taken. Pick another one.")
					return nil
				}
				return err
			}
			if err := localstore.SaveProfile(localstore.Profile{
				Username:     username,
				BalanceCents: account.StarterBalanceCents,
				Holdings:     map[string]int64{},
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Welcome, %s! You start with %s.", username, formatCents(account.StarterBalanceCents)))
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Stock Kidz",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			api := newAPIClient(apiBase)
			if err := api.Login(ctx, username, password); err != nil {
				if client.IsStatus(err, http.StatusUnauthorized) {
					printError("Invalid credentials.")
					return nil
				}
				return err
			}

			balance, err := api.FetchBalance(ctx, username)
			if err != nil {
				return err
			}
			portfolio, err := api.FetchPortfolio(ctx, username)
			if err != nil {
				return err
			}
			if portfolio == nil {
				portfolio = map[string]int64{}
			}
			// Holdings saved on this device before the server knew about
			// them get pushed up on login.
			if len(portfolio) == 0 {
				if prev, err := localstore.LoadProfile(); err == nil && prev.Username == username && len(prev.Holdings) > 0 {
					if err := api.SavePortfolio(ctx, username, prev.Holdings); err == nil {
						portfolio = prev.Holdings
					}
				}
			}
			if err := localstore.SaveProfile(localstore.Profile{
				Username:     username,
				BalanceCents: account.DollarsToCents(balance),
				Holdings:     portfolio,
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Welcome back, %s! Bank: %s", username, formatCents(account.DollarsToCents(balance))))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := localstore.Clear(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

// openSession builds an in-memory trading session from the saved profile and
// the live catalog.
func openSession(ctx context.Context, api *client.Client) (*session.Session, localstore.Profile, error) {
	profile, err := localstore.LoadProfile()
	if err != nil {
		return nil, localstore.Profile{}, err
	}
	stocks, err := api.ListStocks(ctx)
	if err != nil {
		return nil, localstore.Profile{}, err
	}
	s := session.New(session.Config{
		Username:     profile.Username,
		BalanceCents: profile.BalanceCents,
		Holdings:     profile.Holdings,
		Stocks:       stocks,
		Persister:    api,
		Prices:       api,
	})
	return s, profile, nil
}

// snapshot writes the session's state back to disk so the next command
// starts where this one left off.
func snapshot(username string, s *session.Session) error {
	if err := localstore.SaveProfile(localstore.Profile{
		Username:     username,
		BalanceCents: s.BalanceCents(),
		Holdings:     s.Holdings(),
	}); err != nil {
		return err
	}
	return localstore.AppendTrades(s.Trades())
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your piggy bank and holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			s, profile, err := openSession(ctx, newAPIClient(apiBase))
			if err != nil {
				return err
			}
			renderDashboard(profile.Username, s)
			return nil
		},
	}
}

func newWatchCmd(apiBase *string, pollEvery time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch your net worth move with the market",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			api := newAPIClient(apiBase)
			profile, err := localstore.LoadProfile()
			if err != nil {
				return err
			}
			stocks, err := api.ListStocks(ctx)
			if err != nil {
				return err
			}

			var s *session.Session
			s = session.New(session.Config{
				Username:     profile.Username,
				BalanceCents: profile.BalanceCents,
				Holdings:     profile.Holdings,
				Stocks:       stocks,
				Persister:    api,
				Prices:       api,
				PollEvery:    pollEvery,
				OnRefresh: func() {
					renderDashboard(profile.Username, s)
					renderPerformance(s)
				},
			})
			defer s.Close()

			renderDashboard(profile.Username, s)
			printInfo(fmt.Sprintf("Refreshing every %s. Ctrl-C to stop.", pollEvery))

			s.Start(ctx)
			<-ctx.Done()
			renderPerformance(s)
			return snapshot(profile.Username, s)
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [ticker] [shares]",
		Short: "Buy shares",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tradeCommand(cmd, apiBase, "buy", args)
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [ticker] [shares]",
		Short: "Sell shares",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tradeCommand(cmd, apiBase, "sell", args)
		},
	}
}

func tradeCommand(cmd *cobra.Command, apiBase *string, side string, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	api := newAPIClient(apiBase)
	s, profile, err := openSession(ctx, api)
	if err != nil {
		return err
	}
	defer s.Close()

	var ticker string
	if len(args) > 0 {
		ticker = args[0]
	} else {
		ticker, err = promptRequired("Ticker")
		if err != nil {
			return err
		}
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	// A missing or unparseable share count means one share.
	var quantity int64
	if len(args) > 1 {
		quantity = parseQuantity(args[1])
	} else {
		quantity, err = promptQuantity("Shares")
		if err != nil {
			return err
		}
	}

	var trade session.Trade
	if side == "buy" {
		trade, err = s.Buy(ticker, quantity)
	} else {
		trade, err = s.Sell(ticker, quantity)
	}
	if err != nil {
		printError(err.Error())
		return nil
	}

	renderTrade(trade)
	printInfo(fmt.Sprintf("Bank: %s  Net worth: %s", formatCents(s.BalanceCents()), formatCents(s.NetWorthCents())))
	return snapshot(profile.Username, s)
}

func newStocksCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stocks [ticker]",
		Short: "List the market, or show one stock's story",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			api := newAPIClient(apiBase)

			if len(args) == 1 {
				detail, err := api.StockDetail(ctx, args[0])
				if err != nil {
					if client.IsStatus(err, http.StatusNotFound) {
						printError("No stock called " + strings.ToUpper(args[0]))
						return nil
					}
					return err
				}
				renderStockDetail(detail)
				return nil
			}

			stocks, err := api.ListStocks(ctx)
			if err != nil {
				return err
			}
			renderStocksList(stocks)
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "See the richest players",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			entries, err := newAPIClient(apiBase).Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(entries)
			return nil
		},
	}
}

func newNewsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Read the market news",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			items, err := newAPIClient(apiBase).News(ctx)
			if err != nil {
				return err
			}
			renderNews(items)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your past trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := localstore.LoadTrades()
			if err != nil {
				return err
			}
			renderHistory(trades)
			return nil
		},
	}
}

func newGrowthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "growth",
		Short: "See how savings grow with compound interest",
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, err := promptFloat("Starting amount ($)", 0)
			if err != nil {
				return err
			}
			rate, err := promptFloat("Yearly interest rate (%)", 0)
			if err != nil {
				return err
			}
			years, err := promptInt("Years", 1)
			if err != nil {
				return err
			}
			monthly, err := promptFloat("Added every month ($)", 0)
			if err != nil {
				return err
			}

			proj, err := growth.Project(growth.Input{
				Principal:    decimal.NewFromFloat(principal),
				AnnualRate:   decimal.NewFromFloat(rate),
				PeriodsPerYr: 12,
				Years:        years,
				Contribution: decimal.NewFromFloat(monthly),
			})
			if err != nil {
				return err
			}
			renderGrowth(proj)
			return nil
		},
	}
}
