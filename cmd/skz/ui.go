package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"stockkidz/internal/account"
	"stockkidz/internal/growth"
	"stockkidz/internal/market"
	"stockkidz/internal/session"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptPassword reads without echo when stdin is a terminal.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(string(raw))
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// parseQuantity mirrors the original form behavior: anything that is not a
// positive whole number becomes one share.
func parseQuantity(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 1
	}
	return v
}

// promptQuantity defaults a blank answer to one share.
func promptQuantity(label string) (int64, error) {
	for {
		fmt.Printf("%s [1]: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 1, nil
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil || v <= 0 {
			printWarn("Enter a positive whole number.")
			continue
		}
		return v, nil
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %.2f", min))
			continue
		}
		return v, nil
	}
}

func promptInt(label string, min int) (int, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderDashboard(username string, s *session.Session) {
	accent.Printf("\n== %s'S PIGGY BANK ==\n", strings.ToUpper(username))
	fmt.Printf("%-16s %s\n", "Cash", formatCents(s.BalanceCents()))
	fmt.Printf("%-16s %s\n", "Stocks held", formatCents(s.PortfolioValueCents()))
	fmt.Printf("%-16s %s\n", "Net worth", formatCents(s.NetWorthCents()))

	holdings := s.Holdings()
	if len(holdings) == 0 {
		printInfo("No stocks yet. Try: skz buy")
		return
	}
	fmt.Printf("\n%-8s %-18s %8s %12s %12s\n", "TICKER", "NAME", "SHARES", "PRICE", "VALUE")
	for _, st := range s.Stocks() {
		qty, ok := holdings[st.Ticker]
		if !ok {
			continue
		}
		value := account.DollarsToCents(st.CurrentPrice) * qty
		fmt.Printf("%-8s %-18s %8d %12s %12s\n",
			st.Ticker,
			truncate(st.DisplayName, 18),
			qty,
			formatCents(account.DollarsToCents(st.CurrentPrice)),
			formatCents(value),
		)
	}
	fmt.Println()
}

func renderPerformance(s *session.Session) {
	perf := s.Performance()
	if len(perf) == 0 {
		return
	}
	accent.Println("\n== NET WORTH ==")
	for _, p := range perf {
		fmt.Printf("%-8s %12s\n", p.DisplayTime, formatCents(account.DollarsToCents(p.NetWorth)))
	}
	fmt.Println()
}

func renderStocksList(stocks []market.Stock) {
	accent.Println("\n== THE MARKET ==")
	fmt.Printf("%-4s %-8s %-18s %12s %10s\n", "ID", "TICKER", "NAME", "PRICE", "CHANGE")
	for _, st := range stocks {
		fmt.Printf("%-4s %-8s %-18s %12s %10s\n",
			st.ID,
			st.Ticker,
			truncate(st.DisplayName, 18),
			formatCents(account.DollarsToCents(st.CurrentPrice)),
			colorizePercent(st.PercentChange),
		)
	}
	fmt.Println()
}

func renderStockDetail(detail market.StockDetail) {
	accent.Printf("\n== %s (%s) ==\n", strings.ToUpper(detail.DisplayName), detail.Ticker)
	fmt.Printf("%-16s %s\n", "Price", formatCents(account.DollarsToCents(detail.CurrentPrice)))
	fmt.Printf("%-16s %s\n", "Started at", formatCents(account.DollarsToCents(detail.BasePrice)))
	fmt.Printf("%-16s %s\n", "Change", colorizePercent(detail.PercentChange))
	if len(detail.Series) > 0 {
		fmt.Printf("\n%-22s %12s\n", "WHEN", "PRICE")
		for _, p := range detail.Series {
			fmt.Printf("%-22s %12s\n", p.TickAt.Local().Format("Jan 2 15:04:05"), formatCents(account.DollarsToCents(p.Price)))
		}
	}
	fmt.Println()
}

func renderTrade(t session.Trade) {
	verb := "Bought"
	if t.Side == "sell" {
		verb = "Sold"
	}
	printSuccess(fmt.Sprintf("%s %d %s @ %s for %s total.",
		verb, t.Quantity, t.Ticker,
		formatCents(account.DollarsToCents(t.Price)),
		formatCents(account.DollarsToCents(t.Total)),
	))
}

func renderLeaderboard(entries []account.LeaderboardEntry) {
	accent.Println("\n== TOP TRADERS ==")
	if len(entries) == 0 {
		printInfo("No players yet.")
		return
	}
	fmt.Printf("%-6s %-18s %14s\n", "RANK", "PLAYER", "BANK")
	for i, row := range entries {
		fmt.Printf("%-6d %-18s %14s\n", i+1, truncate(row.Username, 18), formatCents(account.DollarsToCents(row.Balance)))
	}
	fmt.Println()
}

func renderNews(items []market.NewsItem) {
	accent.Println("\n== MARKET NEWS ==")
	for _, item := range items {
		fmt.Printf("%s %s\n", warn.Sprintf("[%s]", item.Category), neutral.Sprint(item.Headline))
		fmt.Printf("  %s  (%s)\n\n", item.Summary, item.Symbol)
	}
}

func renderHistory(trades []session.Trade) {
	accent.Println("\n== TRADE HISTORY ==")
	if len(trades) == 0 {
		printInfo("No trades yet.")
		return
	}
	fmt.Printf("%-22s %-6s %-8s %8s %12s %12s\n", "WHEN", "SIDE", "TICKER", "SHARES", "PRICE", "TOTAL")
	for _, t := range trades {
		fmt.Printf("%-22s %-6s %-8s %8d %12s %12s\n",
			t.At.Local().Format("Jan 2 15:04:05"),
			strings.ToUpper(t.Side),
			t.Ticker,
			t.Quantity,
			formatCents(account.DollarsToCents(t.Price)),
			formatCents(account.DollarsToCents(t.Total)),
		)
	}
	fmt.Println()
}

func renderGrowth(proj growth.Projection) {
	accent.Println("\n== IF YOU KEEP SAVING ==")
	fmt.Printf("%-6s %14s %14s %14s\n", "YEAR", "SAVED", "EARNED", "BALANCE")
	for _, y := range proj.Years {
		fmt.Printf("%-6d %14s %14s %14s\n",
			y.Year,
			"$"+y.Contributed.StringFixed(2),
			"$"+y.Earned.StringFixed(2),
			"$"+y.Balance.StringFixed(2),
		)
	}
	fmt.Println()
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / account.CentsPerDollar
	frac := v % account.CentsPerDollar
	return fmt.Sprintf("%s$%s.%02d", sign, comma(whole), frac)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
