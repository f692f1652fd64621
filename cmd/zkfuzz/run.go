package main

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/zkfuzz/zkfuzz"
	"github.com/zkfuzz/zkfuzz/internal/zkerr"
)

type fuzzOptions struct {
	inputFile    string
	prime        string
	searchMode   string
	whitelist    string
	mutationPath string
	flagSymbolic bool
	assertOff    bool
	lessThanOff  bool
	printStats   bool
	saveOutput   string
	seed         int64
}

// runFuzz wires the recognized CLI options into zkfuzz.LoadProgram /
// zkfuzz.Run, then renders the resulting report to stdout and,
// when --flag_save_output names a path, to that file as well.
func runFuzz(opts fuzzOptions, out io.Writer) error {
	if opts.inputFile == "" {
		return zkerr.New("--input_file is required")
	}
	if err := validateSearchMode(opts.searchMode); err != nil {
		return err
	}

	modulus, err := parsePrime(opts.prime)
	if err != nil {
		return err
	}

	circuit, err := loadCircuit(opts.inputFile)
	if err != nil {
		return err
	}

	whitelist, err := loadWhitelist(opts.whitelist)
	if err != nil {
		return err
	}
	if err := validateWhitelistTemplate(circuit.MainTemplate, whitelist); err != nil {
		return err
	}

	mutationCfg, err := loadMutationConfig(opts.mutationPath)
	if err != nil {
		return err
	}

	zopts := zkfuzz.Options{
		Modulus:                    modulus,
		SearchMode:                 zkfuzz.SearchMode(opts.searchMode),
		Whitelist:                  whitelist,
		MutationConfig:             mutationCfg,
		FlagSymbolicTemplateParams: opts.flagSymbolic,
		ConstraintAssertDisabled:   opts.assertOff,
		LessThanDisabled:           opts.lessThanOff,
		Seed:                       opts.seed,
		TargetPath:                 opts.inputFile,
	}

	templates := make([]zkfuzz.TemplateDef, len(circuit.Templates))
	for i, t := range circuit.Templates {
		templates[i] = zkfuzz.TemplateDef{Name: t.Name, ParamNames: t.Params, Body: t.Body}
	}
	functions := make([]zkfuzz.FunctionDef, len(circuit.Functions))
	for i, f := range circuit.Functions {
		functions[i] = zkfuzz.FunctionDef{Name: f.Name, ArgNames: f.Args, Body: f.Body}
	}

	program, err := zkfuzz.LoadProgram(circuit.MainTemplate, circuit.Params, circuit.Body, templates, functions, zopts)
	if err != nil {
		return err
	}

	var assignment map[string]*big.Int
	if len(circuit.Assignment) > 0 {
		assignment = make(map[string]*big.Int, len(circuit.Assignment))
		for k, v := range circuit.Assignment {
			n, ok := new(big.Int).SetString(v, 10)
			if !ok {
				return zkerr.New(fmt.Sprintf("assignment value %q for %q is not a decimal integer", v, k))
			}
			assignment[k] = n
		}
	}

	if opts.printStats {
		fmt.Fprintln(os.Stderr, zkfuzz.ComputeStats(program, zopts).String())
	}

	result, err := zkfuzz.Run(program, assignment, zopts)
	if err != nil {
		return err
	}

	rendered, err := result.Marshal()
	if err != nil {
		return zkerr.Wrap("rendering report", err.Error())
	}
	fmt.Fprintln(out, string(rendered))

	if opts.saveOutput != "" {
		if err := os.WriteFile(opts.saveOutput, rendered, 0o644); err != nil {
			return zkerr.Wrap("writing --flag_save_output", err.Error())
		}
	}
	return nil
}
