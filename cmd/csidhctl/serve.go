package main

import (
	"errors"
	"fmt"

	nikepem "github.com/katzenpost/hpqc/nike/pem"
	"github.com/spf13/cobra"

	"github.com/smallyu/go-csidh/internal/keystore"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
	"github.com/smallyu/go-csidh/internal/server"
	"github.com/smallyu/go-csidh/pkg/scheme"
)

func newServeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve key exchanges over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Server == nil {
				return errors.New("config file must be specified with a Server block")
			}
			ks, err := keystore.Open(e.cfg.Keystore.Path, e.cfg.Keystore.Bucket, e.params)
			if err != nil {
				return err
			}
			entry, err := ks.Get(e.cfg.Server.KeyName)
			ks.Close()
			if err != nil {
				return err
			}

			srv, err := server.New(&server.Config{
				Params:      e.params,
				Key:         entry.Key,
				Address:     e.cfg.Server.Address,
				ReadTimeout: e.cfg.Server.ReadTimeout,
				Workers:     e.cfg.Server.Workers,

				RequestTimeout: e.cfg.Server.RequestTimeout,
				RateLimit:      e.cfg.Server.RateLimit,

				Log:      e.logger("server"),
				ErrorLog: e.backend.GetGoLogger("http", "WARNING"),
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}
}

func newExchangeCommand(e *env) *cobra.Command {
	var (
		url     string
		keyFile string
	)
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Run an exchange against a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var key *keygen.Key
			if keyFile != "" {
				s := scheme.NewScheme(e.params, nil)
				priv, err := nikepem.FromPrivatePEMFile(keyFile, s)
				if err != nil {
					return err
				}
				key = priv.(*scheme.PrivateKey).Key()
			} else {
				var err error
				if key, err = keygen.GenerateKey(e.params, nil); err != nil {
					return err
				}
				e.log.Infof("Using an ephemeral key")
			}

			c := &server.Client{URL: url, Params: e.params, Key: key, Log: e.logger("client")}
			res, err := c.Exchange(cmd.Context())
			if err != nil {
				return err
			}
			secret, err := keygen.SharedSecret(res.Shared, nil, []byte(scheme.NewScheme(e.params, nil).Name()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server %s\nshared %s\nsecret %x\n", res.ServerPublic, res.Shared, secret)
			return nil
		},
	}
	cmd.Flags().StringVarP(&url, "url", "u", "http://127.0.0.1:8419", "server base URL")
	cmd.Flags().StringVarP(&keyFile, "key", "k", "", "private key PEM file (default: ephemeral)")
	return cmd
}
