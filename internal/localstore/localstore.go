// Package localstore keeps the CLI's on-disk state under ~/.skz: which
// player is logged in, a per-player snapshot of the last known balance and
// holdings, and the session trade log.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stockkidz/internal/session"
)

type Profile struct {
	Username     string           `json:"username"`
	BalanceCents int64            `json:"balance_cents"`
	Holdings     map[string]int64 `json:"holdings"`
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".skz")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func profilePath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

func tradesPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "trades.json"), nil
}

func SaveProfile(p Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func LoadProfile() (Profile, error) {
	path, err := profilePath()
	if err != nil {
		return Profile{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(p.Username) == "" {
		return Profile{}, fmt.Errorf("no logged-in player found, run: skz login")
	}
	return p, nil
}

// Clear removes the profile and trade log. Logout calls this.
func Clear() error {
	for _, f := range []func() (string, error){profilePath, tradesPath} {
		path, err := f()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func LoadTrades() ([]session.Trade, error) {
	path, err := tradesPath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []session.Trade{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []session.Trade{}, nil
	}
	var out []session.Trade
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func AppendTrades(trades []session.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	existing, err := LoadTrades()
	if err != nil {
		return err
	}
	existing = append(existing, trades...)
	path, err := tradesPath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
