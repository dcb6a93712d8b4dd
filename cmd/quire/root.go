package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go.quire.dev/quire"
	"go.quire.dev/quire/resolver"
)

var rootCmd = &cobra.Command{
	Use:   "quire",
	Short: "Load CommonJS modules into an embedded JavaScript runtime",
	Long: `quire resolves a module specifier against the filesystem, evaluates the
file in an embedded JavaScript runtime, and prints the exported value.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("base-dir", "", "base directory for module resolution (default: working directory)")
	flags.Int("shards", 1, "number of JavaScript runtime shards")
	flags.StringSlice("ext", nil, "recognized file extensions, in probe order")
	flags.String("package-main", "", "package.json field naming a directory's entry file")

	viper.SetEnvPrefix("quire")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(flags)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(serveCmd)
}

func newRuntime(logger *zap.Logger) (*quire.Runtime, error) {
	return quire.NewRuntime(quire.Config{
		Logger:  logger,
		Shards:  viper.GetInt("shards"),
		BaseDir: viper.GetString("base-dir"),
		Resolver: quire.GetResolver(resolver.Options{
			Extensions:  viper.GetStringSlice("ext"),
			PackageMain: viper.GetString("package-main"),
		}),
	})
}
