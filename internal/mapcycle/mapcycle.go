// Package mapcycle reads Urban Terror map cycle files.
//
// A cycle lists one map per line. A map may be followed by a brace block
// of per-map cvars:
//
//	ut4_casa
//	{
//		g_gametype "11"
//	}
//	ut4_abbey
package mapcycle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ernie/bot30/internal/domain"
)

// Map is one entry of the cycle
type Map struct {
	Name    string
	Options map[string]string
}

// Cycle is the ordered list of maps
type Cycle []Map

// Get returns the options of a map by name
func (c Cycle) Get(name string) (map[string]string, bool) {
	for _, m := range c {
		if m.Name == name {
			return m.Options, true
		}
	}
	return nil, false
}

// Parse reads a cycle. Blank lines and // comments are skipped. A map
// that appears twice keeps its first position and its last options.
func Parse(r io.Reader) (Cycle, error) {
	var (
		cycle   Cycle
		index   = make(map[string]int)
		opts    map[string]string
		lastMap = -1
		lineNo  int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "//"):
			continue
		case line == "{":
			if lastMap < 0 {
				return nil, fmt.Errorf("line %d: option block without a map", lineNo)
			}
			opts = make(map[string]string)
		case line == "}":
			if opts == nil {
				return nil, fmt.Errorf("line %d: unexpected }", lineNo)
			}
			cycle[lastMap].Options = opts
			opts = nil
		case opts == nil:
			if i, ok := index[line]; ok {
				lastMap = i
				cycle[i].Options = map[string]string{}
				continue
			}
			index[line] = len(cycle)
			lastMap = len(cycle)
			cycle = append(cycle, Map{Name: line, Options: map[string]string{}})
		default:
			key, value, _ := strings.Cut(line, " ")
			opts[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading map cycle: %w", err)
	}
	if opts != nil {
		return nil, fmt.Errorf("unterminated option block for %s", cycle[lastMap].Name)
	}
	return cycle, nil
}

// ParseFile reads a cycle from disk
func ParseFile(path string) (Cycle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening map cycle: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Mode returns the label shown next to a map name, or "" for plain CTF,
// the server default.
func Mode(opts map[string]string) string {
	var label string
	switch {
	case opts["mod_gungame"] == "1":
		label = domain.GameTypeGunGame.String() + " d3mod"
	case opts["mod_ctf"] == "1":
		label = domain.GameTypeCTF.String() + " d3mod"
	default:
		code, ok := opts["g_gametype"]
		if !ok {
			code = "7"
		}
		gt, err := domain.ParseGameType(code)
		if err != nil {
			label = "GT " + code
		} else {
			label = gt.String()
		}
	}
	if opts["g_instagib"] == "1" {
		label += " Instagib"
	}
	if label == domain.GameTypeCTF.String() {
		return ""
	}
	return "(" + label + ")"
}

// DisplayName trims the trailing underscores some cycle entries carry
func DisplayName(name string) string {
	return strings.TrimRight(name, "_")
}
