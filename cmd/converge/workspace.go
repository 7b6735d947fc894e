package cmd

import (
	"fmt"
	"os"

	"github.com/converge/converge/autoscale"
	"github.com/converge/converge/config"
	"github.com/converge/converge/provider"
	awsprovider "github.com/converge/converge/provider/aws"
	"github.com/converge/converge/provider/mock"
	"github.com/converge/converge/reconciler"
	"github.com/converge/converge/resource"
	"github.com/converge/converge/resource/hcldecoder"
	"github.com/converge/converge/rollout"
	"github.com/converge/converge/state"
	"github.com/converge/converge/state/kvbackend"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// A workspace holds everything a command needs after loading and decoding a
// project: the decoded configuration, the state store and the provider set.
type workspace struct {
	loader  *config.Loader
	decoded *hcldecoder.Result
	project string
	kinds   *resource.Registry

	store *state.Store
	close func()

	providers *provider.Registry
	fleet     rollout.FleetOps
	health    rollout.HealthChecker
	metrics   autoscale.MetricSource

	logger *zap.Logger
}

// loadWorkspace loads and decodes the project at the directory given as the
// first argument (default "."), and wires the state backend and providers
// from the global flags. Exits the process on any failure.
func loadWorkspace(cmd *cobra.Command, args []string) *workspace {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	ws := &workspace{
		loader: &config.Loader{},
		kinds:  resource.Builtin(),
		logger: newLogger(cmd),
	}

	root, err := ws.loader.Root(dir)
	if err != nil {
		fatal(err)
	}
	if root == "" {
		fmt.Fprintln(os.Stderr, "Project not found")
		os.Exit(1)
	}

	body, diags := ws.loader.Load(root)
	if diags.HasErrors() {
		ws.loader.WriteDiagnostics(os.Stderr, diags)
		os.Exit(1)
	}

	ws.decoded, diags = hcldecoder.DecodeBody(body, ws.kinds)
	if diags.HasErrors() {
		ws.loader.WriteDiagnostics(os.Stderr, diags)
		os.Exit(1)
	}

	ws.project = ws.decoded.Project.Name
	if override, _ := cmd.Flags().GetString("project"); override != "" {
		ws.project = override
	}

	mocked, _ := cmd.Flags().GetBool("mock")
	if mocked {
		p := mock.New()
		ws.store = &state.Store{Backend: &kvbackend.Memory{}}
		ws.close = func() {}
		ws.providers = p.Registry()
		ws.fleet = p
		ws.health = p
		ws.metrics = p
		return ws
	}

	var backend *kvbackend.Bolt
	if file, _ := cmd.Flags().GetString("state"); file != "" {
		backend, err = kvbackend.NewBoltWithFile(file)
	} else {
		backend, err = kvbackend.NewBolt()
	}
	if err != nil {
		fatal(err)
	}
	ws.store = &state.Store{Backend: backend}
	ws.close = func() {
		_ = backend.Close()
	}

	p, err := awsprovider.New()
	if err != nil {
		fatal(err)
	}
	ws.providers = p.Registry()
	ws.fleet = p
	ws.health = p
	ws.metrics = p
	return ws
}

// reconciler builds the execution engine over the workspace's store and
// providers.
func (ws *workspace) reconciler() *reconciler.Reconciler {
	return &reconciler.Reconciler{
		State:     ws.store,
		Providers: ws.providers,
		Registry:  ws.kinds,
		Rollouts: &rollout.Coordinator{
			Fleet:  ws.fleet,
			Health: ws.health,
			Logger: ws.logger,
		},
		Logger: ws.logger,
	}
}
