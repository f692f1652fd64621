// Command zkfuzz is the CLI surface: an out-of-core collaborator whose
// only job is recognizing the documented options and wiring them into
// zkfuzz.Run - a single cobra root command reading its target from a file
// flag, formatting errors through a small colorized helper rather than
// letting cobra print a raw Go error.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/zkfuzz/zkfuzz/internal/ast"
	"github.com/zkfuzz/zkfuzz/internal/mutationcfg"
	"github.com/zkfuzz/zkfuzz/internal/zkerr"
)

// circuitFile is the on-disk shape `input_file` points at: the AST node
// shapes internal/ast fixes, produced by whatever front-end parsed the
// circuit source.
type circuitFile struct {
	MainTemplate string            `json:"main_template"`
	Params       []string          `json:"params"`
	Body         ast.Statement     `json:"body"`
	Assignment   map[string]string `json:"assignment,omitempty"`
	Templates    []templateFileDef `json:"templates,omitempty"`
	Functions    []functionFileDef `json:"functions,omitempty"`
}

// templateFileDef is one auxiliary template entry under "templates" - any
// component a Substitution in the main template (or another auxiliary
// template) instantiates must have its definition listed here.
type templateFileDef struct {
	Name   string        `json:"name"`
	Params []string      `json:"params"`
	Body   ast.Statement `json:"body"`
}

// functionFileDef is one auxiliary function entry under "functions".
type functionFileDef struct {
	Name string        `json:"name"`
	Args []string      `json:"args"`
	Body ast.Statement `json:"body"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		inputFile     string
		prime         string
		heuristics    string
		searchMode    string
		whitelist     string
		mutationPath  string
		flagSymbolic  bool
		assertOff     bool
		lessThanOff   bool
		printStats    bool
		saveOutput    string
		seed          int64
		noColor       bool
	)

	rootCmd := &cobra.Command{
		Use:           "zkfuzz",
		Short:         "Find under/over-constrained bugs in a circuit's symbolic trace",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFuzz(fuzzOptions{
				inputFile:    inputFile,
				prime:        prime,
				searchMode:   searchMode,
				whitelist:    whitelist,
				mutationPath: mutationPath,
				flagSymbolic: flagSymbolic,
				assertOff:    assertOff,
				lessThanOff:  lessThanOff,
				printStats:   printStats,
				saveOutput:   saveOutput,
				seed:         seed,
			}, cmd.OutOrStdout())
		},
	}
	rootCmd.SetArgs(args)

	flags := rootCmd.Flags()
	flags.StringVar(&inputFile, "input_file", "", "path to the parsed-circuit JSON (required)")
	flags.StringVar(&prime, "prime", "", "field modulus as a decimal or 0x-prefixed string (required)")
	flags.StringVar(&heuristics, "heuristics_range", "", "unused placeholder kept for CLI-surface compatibility")
	flags.StringVar(&searchMode, "search_mode", "off", "off|quick|full|heuristics|ga")
	flags.StringVar(&whitelist, "path_to_whitelist", "", "path to a newline-delimited template whitelist")
	flags.StringVar(&mutationPath, "path_to_mutation_setting", "", "path to a mutation-config JSON file")
	flags.BoolVar(&flagSymbolic, "flag_symbolic_template_params", false, "keep template parameters symbolic")
	flags.BoolVar(&assertOff, "constraint_assert_dissabled", false, "don't fail execution on a false assert")
	flags.BoolVar(&lessThanOff, "lessthan_dissabled", false, "disable the builtin LessThan template shortcut")
	flags.BoolVar(&printStats, "flag_printout_stats", false, "print constraint statistics to stderr")
	flags.StringVar(&saveOutput, "flag_save_output", "", "path to write the counterexample report JSON to")
	flags.Int64Var(&seed, "seed", 42, "deterministic RNG seed for the mutation-test search")
	flags.BoolVar(&noColor, "no-color", false, "disable colored error output")

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err, !noColor)
		return 1
	}
	return 0
}

func printError(w *os.File, err error, useColor bool) {
	msg := err.Error()
	if useColor {
		fmt.Fprintf(w, "\x1b[31mError:\x1b[0m %s\n", msg)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", msg)
}

func loadMutationConfig(path string) (mutationcfg.Config, error) {
	if path == "" {
		return mutationcfg.Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return mutationcfg.Config{}, zkerr.Wrap("reading --path_to_mutation_setting", err.Error())
	}
	return mutationcfg.Load(raw)
}

func loadWhitelist(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zkerr.Wrap("reading --path_to_whitelist", err.Error())
	}
	var names []string
	for _, line := range splitLines(string(raw)) {
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			line = trimCR(line)
			out = append(out, line)
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, trimCR(s[start:]))
	}
	return out
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func loadCircuit(path string) (*circuitFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zkerr.Wrap("reading --input_file", err.Error())
	}
	var cf circuitFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, zkerr.Wrap("parsing --input_file", err.Error())
	}
	return &cf, nil
}

func parsePrime(s string) (*big.Int, error) {
	if s == "" {
		return nil, zkerr.New("--prime is required")
	}
	p, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, zkerr.New(fmt.Sprintf("--prime %q is not a valid integer literal", s))
	}
	return p, nil
}

// validateSearchMode checks mode against the recognized enum, offering a
// fuzzy-matched suggestion for a typo'd one.
func validateSearchMode(mode string) error {
	valid := []string{"off", "quick", "full", "heuristics", "ga"}
	for _, v := range valid {
		if v == mode {
			return nil
		}
	}
	e := &zkerr.Error{
		Message: fmt.Sprintf("--search_mode %q is not recognized", mode),
	}
	if ranks := fuzzy.RankFindFold(mode, valid); len(ranks) > 0 {
		e.Suggestion = fmt.Sprintf("did you mean %q?", ranks[0].Target)
	}
	return e
}

// validateWhitelistTemplate checks that templateName appears (exactly) in
// whitelist when a whitelist was supplied, and otherwise offers the closest
// match.
func validateWhitelistTemplate(templateName string, whitelist []string) error {
	if len(whitelist) == 0 {
		return nil
	}
	for _, w := range whitelist {
		if w == templateName {
			return nil
		}
	}
	e := &zkerr.Error{
		Message: fmt.Sprintf("main template %q is not in --path_to_whitelist", templateName),
	}
	if ranks := fuzzy.RankFindFold(templateName, whitelist); len(ranks) > 0 {
		e.Suggestion = fmt.Sprintf("did you mean %q?", ranks[0].Target)
	}
	return e
}
