package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/XiaoChennnng/SkyDream-ATC-Apply-System/cmd/util"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/cache"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/service"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/fsproxy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the file proxy",
		Long: `Start the HTTP file proxy on top of the configured backend. Document
stores in other processes reach the backend through it (--backend http).
The configuration can be set via command line flags or environment variables.
The format of the environment variables is SKYDREAM_<flag> (e.g. SKYDREAM_DATA_DIR=/srv/data)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupBackendFlags(ServeCmd)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:3001", cmdUtil.WrapString("The address on which the API will listen"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Read and write timeout of requests in seconds"))

	key = "max-body-mb"
	ServeCmd.PersistentFlags().Int64(key, 50, cmdUtil.WrapString("Largest accepted document in MiB"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "bootstrap"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Create the default administrator account before serving if the backend holds no accounts"))

	key = "admin-secret"
	ServeCmd.PersistentFlags().String(key, service.DefaultAdminSecret, cmdUtil.WrapString("Secret of the default administrator account"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	b, err := cmdUtil.GetBackendConfig()
	if err != nil {
		return err
	}
	if b.Kind == common.BackendHTTP {
		return fmt.Errorf("the file proxy cannot serve another file proxy, choose a local backend")
	}

	serveCmdConfig.Backend = b
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxBodyBytes = viper.GetInt64("max-body-mb") << 20
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.MaxBodyBytes <= 0 {
		return fmt.Errorf("max-body-mb must be positive")
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run opens the backend and serves it until SIGINT or SIGTERM
func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := cmdUtil.OpenBackend(ctx, serveCmdConfig.Backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			cmdUtil.Logger.Errorf("failed to close backend: %v", err)
		}
	}()

	fmt.Fprintln(cmd.ErrOrStderr(), serveCmdConfig.String())

	if viper.GetBool("bootstrap") {
		if err := bootstrap(ctx, b); err != nil {
			return err
		}
	}

	return fsproxy.NewServer(*serveCmdConfig, b).Serve(ctx)
}

// sharedBackend keeps the served backend open when a store on it is closed.
type sharedBackend struct {
	backend.IBackend
}

func (sharedBackend) Close() error { return nil }

// bootstrap creates the default administrator through a short-lived store
// on the served backend.
func bootstrap(ctx context.Context, b backend.IBackend) error {
	st := cmdUtil.NewStore(sharedBackend{b}, &common.StoreConfig{
		CacheTTL:        cache.DefaultTTL,
		CacheListAllTTL: cache.ListAllTTL,
		Fanout:          16,
	})
	defer st.Close()

	created, err := service.New(st, service.Options{AdminSecret: viper.GetString("admin-secret")}).Accounts.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if created {
		cmdUtil.Logger.Infof("created default administrator %s", service.BootstrapAdmin)
	}
	return nil
}
