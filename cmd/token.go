package cmd

import (
	"fmt"
	"os"

	internalApp "github.com/haierkeys/page-notes-service/internal/app"
	pkgapp "github.com/haierkeys/page-notes-service/pkg/app"

	"github.com/spf13/cobra"
)

// tokenCmd issues a user token with the configured key, for hosts that do not sign their own
// tokenCmd 使用配置中的密钥签发用户 Token
var tokenCmd = &cobra.Command{
	Use:   "token --uid <uid> [-c config_file]",
	Short: "Issue a user token signed with security.auth-token-key",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		uid, _ := cmd.Flags().GetInt64("uid")
		nickname, _ := cmd.Flags().GetString("nickname")
		if uid <= 0 {
			return fmt.Errorf("--uid must be a positive user id")
		}
		if configPath == "" {
			configPath = defaultConfigPath
		}

		cfg, _, err := internalApp.LoadConfig(configPath)
		if err != nil {
			return err
		}
		tm := pkgapp.NewTokenManager(pkgapp.TokenConfig{
			SecretKey: cfg.Security.AuthTokenKey,
			Expiry:    cfg.GetTokenExpiry(),
		})
		token, err := tm.Generate(uid, nickname, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	fs := tokenCmd.Flags()
	fs.StringP("config", "c", "", "config file path")
	fs.Int64P("uid", "u", 0, "user id")
	fs.String("nickname", "", "nickname stored in the token")
}
