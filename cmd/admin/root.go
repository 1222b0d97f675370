package admin

import (
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/cmd/util"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/service"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/store"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	docStore store.IStore
	services *service.Services

	// AdminCmd represents the administration command group
	AdminCmd = &cobra.Command{
		Use:   "admin",
		Short: "Administer accounts and records",
		Long: `Administer accounts and records directly on a backend.
Use --backend http to work through a running file proxy.`,
		PersistentPreRunE:  setupServices,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupStoreFlags(AdminCmd)

	AdminCmd.PersistentFlags().String("admin-secret", service.DefaultAdminSecret, util.WrapString("Secret of the default administrator account"))

	// Add subcommands
	AdminCmd.AddCommand(initCmd)
	AdminCmd.AddCommand(resetCmd)
	AdminCmd.AddCommand(usersCmd)
	AdminCmd.AddCommand(createUserCmd)
	AdminCmd.AddCommand(setRoleCmd)
	AdminCmd.AddCommand(reportCmd)
	AdminCmd.AddCommand(violationsCmd)
	AdminCmd.AddCommand(addViolationCmd)
	AdminCmd.AddCommand(deleteViolationCmd)
	AdminCmd.AddCommand(preloadCmd)
	AdminCmd.AddCommand(statsCmd)
	AdminCmd.AddCommand(reindexCmd)
}

// setupServices opens the configured store and builds the services on it
func setupServices(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := util.GetStoreConfig()
	if err != nil {
		return err
	}
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return err
	}
	util.Logger.Debugf("store configuration:\n%s", conf.String())

	docStore, err = util.OpenStore(cmd.Context(), conf)
	if err != nil {
		return err
	}
	services = service.New(docStore, service.Options{
		AdminSecret: viper.GetString("admin-secret"),
		Fanout:      conf.Fanout,
	})
	return nil
}

func closeStore(_ *cobra.Command, _ []string) error {
	if docStore == nil {
		return nil
	}
	return docStore.Close()
}
