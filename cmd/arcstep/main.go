package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/krines/arcstep/internal/analysis"
	"github.com/krines/arcstep/internal/branch"
	"github.com/krines/arcstep/internal/config"
	"github.com/krines/arcstep/internal/engine/native"
	"github.com/krines/arcstep/internal/export"
	"github.com/krines/arcstep/internal/flows"
	"github.com/krines/arcstep/internal/jobs"
	"github.com/krines/arcstep/internal/models"
	"github.com/krines/arcstep/internal/storage"
	"github.com/krines/arcstep/internal/system"
	"github.com/krines/arcstep/internal/tui"
	"github.com/krines/arcstep/internal/viz"
)

var (
	dataDir    string
	configFile string

	// continuation flags
	branchName string
	paramName  string
	param2Name string
	stateCSV   string
	backward   bool
	watch      bool

	// settings flags
	stepSize       float64
	minStepSize    float64
	maxStepSize    float64
	maxSteps       int
	correctorSteps int
	correctorTol   float64
	stepTol        float64

	// curve flags
	pointIndex int

	// show flags
	varIndex int

	// trim flags
	stepHint float64

	// analysis flags
	dt         float64
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	// system-add flags
	sysEquations  string
	sysVars       string
	sysParams     string
	sysValues     string
	sysKind       string
	mapIterations int
	systemFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arcstep",
		Short: "numerical continuation and bifurcation analysis",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".arcstep", "data directory")

	systemsCmd := &cobra.Command{
		Use:   "systems",
		Short: "list systems",
		RunE:  listSystems,
	}

	systemAddCmd := &cobra.Command{
		Use:   "system-add [name]",
		Short: "register a system",
		Args:  cobra.ExactArgs(1),
		RunE:  addSystem,
	}
	systemAddCmd.Flags().StringVar(&sysEquations, "equations", "", "comma-separated right-hand sides")
	systemAddCmd.Flags().StringVar(&sysVars, "vars", "", "comma-separated variable names")
	systemAddCmd.Flags().StringVar(&sysParams, "params", "", "comma-separated parameter names")
	systemAddCmd.Flags().StringVar(&sysValues, "values", "", "comma-separated parameter values")
	systemAddCmd.Flags().StringVar(&sysKind, "kind", "flow", "flow or map")
	systemAddCmd.Flags().IntVar(&mapIterations, "iterations", 1, "map iterations")
	systemAddCmd.Flags().StringVar(&systemFile, "file", "", "system definition file (yaml)")

	continueCmd := &cobra.Command{
		Use:   "continue [system]",
		Short: "continue an equilibrium branch",
		Args:  cobra.ExactArgs(1),
		RunE:  runContinue,
	}
	continueCmd.Flags().StringVar(&branchName, "name", "", "name for the new branch")
	continueCmd.Flags().StringVar(&paramName, "param", "", "continuation parameter")
	continueCmd.Flags().StringVar(&stateCSV, "state", "", "comma-separated initial state")
	continueCmd.Flags().BoolVar(&backward, "backward", false, "continue in the decreasing direction")
	continueCmd.Flags().BoolVar(&watch, "watch", false, "live progress view")
	continueCmd.Flags().StringVar(&configFile, "config", "", "settings file (yaml)")
	addSettingsFlags(continueCmd)

	extendCmd := &cobra.Command{
		Use:   "extend [branch]",
		Short: "continue an existing branch past its frontier",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtend,
	}
	extendCmd.Flags().BoolVar(&backward, "backward", false, "extend the minimum-index frontier")
	extendCmd.Flags().BoolVar(&watch, "watch", false, "live progress view")
	extendCmd.Flags().StringVar(&configFile, "config", "", "settings file (yaml)")
	addSettingsFlags(extendCmd)

	curveCmd := &cobra.Command{
		Use:   "curve [kind] [branch]",
		Short: "continue a two-parameter curve from a branch point",
		Long: "Kinds: fold, hopf, isochrone, pd, ns, lpc. The source point must\n" +
			"carry the matching classification, e.g. a fold point for a fold curve.",
		Args: cobra.ExactArgs(2),
		RunE: runCurve,
	}
	curveCmd.Flags().StringVar(&branchName, "name", "", "name for the new curve")
	curveCmd.Flags().IntVar(&pointIndex, "point", 0, "logical index of the source point")
	curveCmd.Flags().StringVar(&paramName, "param", "", "first free parameter")
	curveCmd.Flags().StringVar(&param2Name, "param2", "", "second free parameter")
	curveCmd.Flags().BoolVar(&backward, "backward", false, "continue in the decreasing direction")
	curveCmd.Flags().BoolVar(&watch, "watch", false, "live progress view")
	curveCmd.Flags().StringVar(&configFile, "config", "", "settings file (yaml)")
	addSettingsFlags(curveCmd)

	branchesCmd := &cobra.Command{
		Use:   "branches",
		Short: "list branches",
		RunE:  listBranches,
	}

	showCmd := &cobra.Command{
		Use:   "show [branch]",
		Short: "plot a branch",
		Args:  cobra.ExactArgs(1),
		RunE:  showBranch,
	}
	showCmd.Flags().IntVar(&varIndex, "var", 0, "state component to plot")

	trimCmd := &cobra.Command{
		Use:   "trim [branch]",
		Short: "discard a branch's initial approximation point",
		Args:  cobra.ExactArgs(1),
		RunE:  trimBranch,
	}
	trimCmd.Flags().Float64Var(&stepHint, "step", 0, "step size hint for the synthesized seed")

	renameCmd := &cobra.Command{
		Use:   "rename [old] [new]",
		Short: "rename a branch, updating dependents",
		Args:  cobra.ExactArgs(2),
		RunE:  renameBranch,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [branch]",
		Short: "delete a branch",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteBranch,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [branch]",
		Short: "export a branch to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [branch]",
		Short: "export a branch diagram to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&varIndex, "var", 0, "state component to plot")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "estimate the largest Lyapunov exponent of a built-in model",
		Args:  cobra.ExactArgs(1),
		RunE:  runLyapunov,
	}
	lyapunovCmd.Flags().StringVar(&stateCSV, "state", "", "comma-separated initial state")
	lyapunovCmd.Flags().Float64Var(&dt, "dt", 0.01, "integration timestep (flows)")
	lyapunovCmd.Flags().IntVar(&sweepSteps, "steps", 20000, "integration steps")

	scanCmd := &cobra.Command{
		Use:   "scan [model]",
		Short: "brute-force attractor sweep over a parameter range",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&paramName, "param", "", "parameter to sweep")
	scanCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep start")
	scanCmd.Flags().Float64Var(&sweepMax, "max", 1, "sweep end")
	scanCmd.Flags().IntVar(&sweepSteps, "steps", 60, "parameter values to test")
	scanCmd.Flags().IntVar(&varIndex, "var", 0, "state component to record")
	scanCmd.Flags().StringVar(&stateCSV, "state", "", "comma-separated initial state")
	scanCmd.Flags().Float64Var(&dt, "dt", 0.01, "integration timestep (flows)")

	rootCmd.AddCommand(systemsCmd, systemAddCmd, continueCmd, extendCmd,
		curveCmd, branchesCmd, showCmd, trimCmd, renameCmd, deleteCmd,
		exportJSONCmd, exportSVGCmd, lyapunovCmd, scanCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&stepSize, "step-size", config.DefaultStepSize, "initial step size")
	cmd.Flags().Float64Var(&minStepSize, "min-step", config.DefaultMinStepSize, "minimum step size")
	cmd.Flags().Float64Var(&maxStepSize, "max-step", config.DefaultMaxStepSize, "maximum step size")
	cmd.Flags().IntVar(&maxSteps, "max-steps", config.DefaultMaxSteps, "maximum continuation steps")
	cmd.Flags().IntVar(&correctorSteps, "corrector-steps", config.DefaultCorrectorSteps, "newton iterations per point")
	cmd.Flags().Float64Var(&correctorTol, "corrector-tol", config.DefaultCorrectorTolerance, "corrector residual tolerance")
	cmd.Flags().Float64Var(&stepTol, "step-tol", config.DefaultStepTolerance, "arclength constraint tolerance")
}

func newService() (*flows.Service, error) {
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	return flows.New(native.New(), store, jobs.NewRegistry()), nil
}

// buildSettings resolves settings: flags override the config file,
// which overrides defaults.
func buildSettings(cmd *cobra.Command) (config.Settings, error) {
	settings := config.DefaultSettings()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return settings, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = loaded
	}
	if cmd.Flags().Changed("step-size") {
		settings.StepSize = stepSize
	}
	if cmd.Flags().Changed("min-step") {
		settings.MinStepSize = minStepSize
	}
	if cmd.Flags().Changed("max-step") {
		settings.MaxStepSize = maxStepSize
	}
	if cmd.Flags().Changed("max-steps") {
		settings.MaxSteps = maxSteps
	}
	if cmd.Flags().Changed("corrector-steps") {
		settings.CorrectorSteps = correctorSteps
	}
	if cmd.Flags().Changed("corrector-tol") {
		settings.CorrectorTolerance = correctorTol
	}
	if cmd.Flags().Changed("step-tol") {
		settings.StepTolerance = stepTol
	}
	return settings, settings.Validate()
}

func listSystems(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	names, err := svc.Store.ListSystems()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no systems")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tVARS\tPARAMS")
	for _, name := range names {
		def, err := svc.Store.LoadSystem(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.Name, def.Kind,
			strings.Join(def.VarNames, ","), strings.Join(def.ParamNames, ","))
	}
	return w.Flush()
}

func addSystem(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	def := &system.Definition{Name: args[0]}
	if systemFile != "" {
		raw, err := os.ReadFile(systemFile)
		if err != nil {
			return fmt.Errorf("failed to read system file: %w", err)
		}
		if err := yaml.Unmarshal(raw, def); err != nil {
			return fmt.Errorf("failed to parse system file: %w", err)
		}
		def.Name = args[0]
	} else {
		values, err := parseFloats(sysValues)
		if err != nil {
			return fmt.Errorf("bad --values: %w", err)
		}
		def.Equations = splitCSV(sysEquations)
		def.VarNames = splitCSV(sysVars)
		def.ParamNames = splitCSV(sysParams)
		def.Params = values
		def.Kind = system.Kind(sysKind)
		def.MapIterations = mapIterations
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if err := svc.Store.SaveSystem(def); err != nil {
		return err
	}
	fmt.Printf("saved system: %s\n", def.Name)
	return nil
}

func runContinue(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	settings, err := buildSettings(cmd)
	if err != nil {
		return err
	}
	state, err := parseFloats(stateCSV)
	if err != nil {
		return fmt.Errorf("bad --state: %w", err)
	}
	name := branchName
	if name == "" {
		name = args[0] + "_eq"
	}

	run, err := svc.Equilibrium(context.Background(), flows.EquilibriumSpec{
		Name:     name,
		System:   args[0],
		Param:    paramName,
		State:    state,
		Settings: settings,
		Forward:  !backward,
	})
	if err != nil {
		return err
	}
	if err := followRun(run, svc); err != nil {
		return err
	}
	fmt.Printf("saved branch: %s\n", name)
	return nil
}

func runExtend(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	var settings *config.Settings
	if configFile != "" || anySettingsFlagChanged(cmd) {
		s, err := buildSettings(cmd)
		if err != nil {
			return err
		}
		settings = &s
	}

	run, err := svc.Extend(context.Background(), flows.ExtendSpec{
		Source:   args[0],
		Forward:  !backward,
		Settings: settings,
	})
	if err != nil {
		return err
	}
	if err := followRun(run, svc); err != nil {
		return err
	}
	fmt.Printf("extended branch: %s\n", args[0])
	return nil
}

func runCurve(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	settings, err := buildSettings(cmd)
	if err != nil {
		return err
	}
	name := branchName
	if name == "" {
		name = fmt.Sprintf("%s_%s_curve", args[1], args[0])
	}

	spec := flows.CurveSpec{
		Name:     name,
		Source:   args[1],
		Point:    branch.LogicalIndex(pointIndex),
		Param:    paramName,
		Param2:   param2Name,
		Settings: settings,
		Forward:  !backward,
	}

	var run *flows.Run
	switch args[0] {
	case "fold":
		run, err = svc.FoldCurve(context.Background(), spec)
	case "hopf":
		run, err = svc.HopfCurve(context.Background(), spec)
	case "isochrone":
		run, err = svc.IsochroneCurve(context.Background(), spec)
	case "pd":
		run, err = svc.PDCurve(context.Background(), spec)
	case "ns":
		run, err = svc.NSCurve(context.Background(), spec)
	case "lpc":
		run, err = svc.LPCCurve(context.Background(), spec)
	default:
		return fmt.Errorf("unknown curve kind %q", args[0])
	}
	if err != nil {
		return err
	}
	if err := followRun(run, svc); err != nil {
		return err
	}
	fmt.Printf("saved curve: %s\n", name)
	return nil
}

func anySettingsFlagChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"step-size", "min-step", "max-step", "max-steps",
		"corrector-steps", "corrector-tol", "step-tol"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// followRun drains a job's message stream, either through the live view
// or as plain progress lines.
func followRun(run *flows.Run, svc *flows.Service) error {
	for _, w := range run.Warnings {
		fmt.Printf("warning: %v\n", w)
	}

	if watch {
		program := tea.NewProgram(tui.NewLive(run.JobID, svc.Jobs, run.Messages))
		final, err := program.Run()
		if err != nil {
			return err
		}
		live, ok := final.(tui.Live)
		if !ok || live.Terminal() == nil {
			return fmt.Errorf("job %s ended without a terminal message", run.JobID)
		}
		return terminalError(*live.Terminal())
	}

	var terminal *jobs.Message
	for msg := range run.Messages {
		if msg.Progress != nil {
			fmt.Printf("\rstep %d/%d  points %d  bifurcations %d  param %.6g   ",
				msg.Progress.CurrentStep, msg.Progress.MaxSteps,
				msg.Progress.PointsComputed, msg.Progress.BifurcationsFound,
				msg.Progress.CurrentParam)
		}
		if msg.Terminal {
			m := msg
			terminal = &m
		}
	}
	fmt.Println()
	if terminal == nil {
		return fmt.Errorf("job %s ended without a terminal message", run.JobID)
	}
	return terminalError(*terminal)
}

func terminalError(m jobs.Message) error {
	switch {
	case m.Aborted:
		return fmt.Errorf("job aborted")
	case m.OK:
		return nil
	default:
		return m.Err
	}
}

func listBranches(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	names, err := svc.Store.ListObjects()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no branches")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		obj, err := svc.Store.LoadObject(name)
		if err != nil {
			continue
		}
		points, bifs := 0, 0
		if obj.Data != nil {
			points = len(obj.Data.Points)
			bifs = len(obj.Data.ValidBifurcations())
		}
		fmt.Fprintln(w, viz.BranchSummary(obj.Name, obj.BranchKind, points, bifs, obj.ParameterName))
	}
	return w.Flush()
}

func showBranch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obj, err := svc.Store.LoadObject(args[0])
	if err != nil {
		return err
	}
	if obj.Data == nil {
		return fmt.Errorf("branch %s has no data", args[0])
	}

	varName := fmt.Sprintf("x%d", varIndex)
	if def, err := svc.Store.LoadSystem(obj.SystemName); err == nil && varIndex < len(def.VarNames) {
		varName = def.VarNames[varIndex]
	}

	fmt.Printf("branch: %s  (%s, %s)\n\n", obj.Name, obj.BranchKind, obj.ParameterName)
	fmt.Println(viz.BranchPlot(obj.Data, varIndex, varName))
	return nil
}

func trimBranch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := svc.Trim(args[0], stepHint); err != nil {
		return err
	}
	fmt.Printf("trimmed branch: %s\n", args[0])
	return nil
}

func renameBranch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := svc.Store.RenameObject(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("renamed %s to %s\n", args[0], args[1])
	return nil
}

func deleteBranch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := svc.Store.DeleteObject(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted branch: %s\n", args[0])
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obj, err := svc.Store.LoadObject(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(obj)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	obj, err := svc.Store.LoadObject(args[0])
	if err != nil {
		return err
	}
	if obj.Data == nil {
		return fmt.Errorf("branch %s has no data", args[0])
	}

	varName := fmt.Sprintf("x%d", varIndex)
	if def, err := svc.Store.LoadSystem(obj.SystemName); err == nil && varIndex < len(def.VarNames) {
		varName = def.VarNames[varIndex]
	}
	_, err = os.Stdout.WriteString(export.BranchSVG(obj.Data, varIndex, varName, obj.ParameterName))
	return err
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	m, err := models.NewRegistry().Get(args[0])
	if err != nil {
		return err
	}
	x0, err := parseFloats(stateCSV)
	if err != nil {
		return fmt.Errorf("bad --state: %w", err)
	}
	if x0 == nil {
		x0 = m.DefaultState
	}
	if len(x0) != len(m.VarNames) {
		return fmt.Errorf("state dimension %d does not match model dimension %d", len(x0), len(m.VarNames))
	}

	exponent := analysis.LargestExponent(m, m.DefaultParams, x0, dt, sweepSteps)
	fmt.Printf("model: %s\n", m.Name)
	fmt.Printf("largest lyapunov exponent: %.6f\n", exponent)
	if exponent > 0 {
		fmt.Println("regime: chaotic")
	} else {
		fmt.Println("regime: regular")
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	m, err := models.NewRegistry().Get(args[0])
	if err != nil {
		return err
	}
	paramIdx := -1
	for i, name := range m.ParamNames {
		if name == paramName {
			paramIdx = i
		}
	}
	if paramIdx < 0 {
		return fmt.Errorf("unknown parameter %q (model has %s)", paramName, strings.Join(m.ParamNames, ","))
	}
	x0, err := parseFloats(stateCSV)
	if err != nil {
		return fmt.Errorf("bad --state: %w", err)
	}
	if x0 == nil {
		x0 = m.DefaultState
	}

	points := analysis.Sweep(m, x0, analysis.SweepConfig{
		ParamIndex: paramIdx,
		StateIndex: varIndex,
		Min:        sweepMin,
		Max:        sweepMax,
		Steps:      sweepSteps,
		Dt:         dt,
		Transient:  2000,
		Record:     64,
	})
	if len(points) == 0 {
		return fmt.Errorf("sweep produced no points")
	}

	// Plot the per-parameter spread: zero on a fixed point, positive on
	// cycles and chaos.
	spreads := make([]float64, len(points))
	for i, sp := range points {
		spreads[i] = sp.Spread()
	}
	caption := fmt.Sprintf("attractor spread of %s, %s in [%g, %g]",
		m.VarNames[varIndex], paramName, sweepMin, sweepMax)
	fmt.Println(asciigraph.Plot(spreads,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
