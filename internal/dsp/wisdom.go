package dsp

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadWisdomFile loads a wisdom file and applies it to every named
// primitive's registry. Each non-blank, non-comment line is
// "primitive implementation-name", in the preferred dispatch order for
// that primitive; lines for the same primitive accumulate in file order.
// Lines naming an unknown primitive or implementation are ignored rather
// than treated as a fatal error, matching spec.md section 4.2's wisdom
// contract: a stale or partially-applicable wisdom file should degrade to
// doing less, not to failing the whole process.
func ReadWisdomFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dsp: reading wisdom file: %w", err)
	}
	defer f.Close()

	order := map[string][]string{}
	seen := map[string]bool{}
	var names []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		prim, impl := fields[0], fields[1]
		order[prim] = append(order[prim], impl)
		if !seen[prim] {
			seen[prim] = true
			names = append(names, prim)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("dsp: reading wisdom file: %w", err)
	}

	for _, prim := range names {
		SetWisdom(prim, order[prim])
	}
	return nil
}
