package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Gun_Graph/frontend"
	"Gun_Graph/service"
	"Gun_Graph/service/gunnode"
)

const (
	listenAddrKey = "gun.listen_addr"
	httpAddrKey   = "gun.http_addr"
	peersKey      = "gun.peers"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gungraph",
	Short: "gungraph - a distributed graph database node speaking the gun wire protocol",
	Long:  ``,
}

// serveCmd starts a node instance based on the local config.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve - starts a gun graph node based on the config in $HOME/.gungraph.yaml",
	Long: `serve - starts a gun graph node based on the config in $HOME/.gungraph.yaml

	The following keys are read from $HOME/.gungraph.yaml
	EXAMPLE:

	gun:
		listen_addr: :8765   # websocket endpoint for inbound peers
		http_addr: :8080     # optional HTTP read/write gateway
		peers:               # optional list of peers to dial
			- ws://other-node:8765/gun
	`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := logrus.NewEntry(logrus.New())

		nodeSvc, err := gunnode.NewService(gunnode.Config{
			ListenAddr: viper.GetString(listenAddrKey),
			Peers:      viper.GetStringSlice(peersKey),
			Logger:     logger.WithField("service", "gun-node"),
		})
		if err != nil {
			fmt.Printf("error creating gun node [%v]\n", err)
			os.Exit(1)
		}

		svcGroup := service.Group{nodeSvc}
		if httpAddr := viper.GetString(httpAddrKey); httpAddr != "" {
			feSvc, err := frontend.NewService(frontend.Config{
				GraphAPI:   nodeSvc.Root(),
				ListenAddr: httpAddr,
				Logger:     logger.WithField("service", "front-end"),
			})
			if err != nil {
				fmt.Printf("error creating front-end [%v]\n", err)
				os.Exit(1)
			}
			svcGroup = append(svcGroup, feSvc)
		}

		ctx, cancelFn := context.WithCancel(context.Background())
		go func() {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt)
			<-quit
			cancelFn()
		}()

		if err := svcGroup.Run(ctx); err != nil {
			fmt.Printf("error running node services [%v]\n", err)
			os.Exit(1)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gungraph.yaml)")
	rootCmd.AddCommand(serveCmd)

	viper.SetDefault(listenAddrKey, ":8765")
	viper.SetDefault(httpAddrKey, "")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gungraph")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
