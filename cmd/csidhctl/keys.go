package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/katzenpost/hpqc/nike"
	nikepem "github.com/katzenpost/hpqc/nike/pem"
	"github.com/katzenpost/hpqc/util"
	"github.com/spf13/cobra"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/isogeny"
	"github.com/smallyu/go-csidh/internal/keystore"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/pkg/scheme"
)

// maxKeygenAttempts bounds the draws of a non-zero private key; PEM
// encoding refuses all-zero keys.
const maxKeygenAttempts = 16

func (e *env) scheme(name string) (nike.Scheme, error) {
	if name == "" {
		s := scheme.NewScheme(e.params, nil)
		s.SetLogger(e.logger("scheme"))
		return s, nil
	}
	s, err := scheme.ByName(name)
	if err != nil {
		return nil, err
	}
	if cs, ok := s.(*scheme.Scheme); ok {
		cs.SetLogger(e.logger("scheme"))
	}
	return s, nil
}

func generateKeyPair(s nike.Scheme) (nike.PublicKey, nike.PrivateKey, error) {
	for i := 0; i < maxKeygenAttempts; i++ {
		pub, priv, err := s.GenerateKeyPair()
		if err != nil {
			return nil, nil, err
		}
		if !util.CtIsZero(priv.Bytes()) {
			return pub, priv, nil
		}
	}
	return nil, nil, errors.New("failed to draw a non-zero private key")
}

func newParamsCommand(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show parameter sets and schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !all {
				fmt.Fprint(out, e.params)
				return nil
			}
			for _, name := range params.Names() {
				ps, err := params.ByName(name)
				if err != nil {
					return err
				}
				fmt.Fprint(out, ps)
			}
			fmt.Fprintf(out, "schemes: %s\n", strings.Join(scheme.Names(), ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every built-in parameter set")
	return cmd
}

func newKeygenCommand(e *env) *cobra.Command {
	var (
		schemeName string
		out        string
		storeName  string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.scheme(schemeName)
			if err != nil {
				return err
			}
			pub, priv, err := generateKeyPair(s)
			if err != nil {
				return err
			}

			if storeName != "" {
				if err := e.storeKey(storeName, priv); err != nil {
					return err
				}
				e.log.Noticef("Stored key %q in %s", storeName, e.cfg.Keystore.Path)
			}
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), nikepem.ToPublicPEMString(pub, s))
				return nil
			}
			if err := nikepem.PrivateKeyToFile(out+".priv.pem", priv, s); err != nil {
				return err
			}
			if err := nikepem.PublicKeyToFile(out+".pub.pem", pub, s); err != nil {
				return err
			}
			e.log.Noticef("Wrote %s.priv.pem and %s.pub.pem", out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&schemeName, "scheme", "s", "", "NIKE scheme name (default: the configured parameter set)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write <out>.priv.pem and <out>.pub.pem")
	cmd.Flags().StringVar(&storeName, "store", "", "also store the key in the keystore under this name")
	return cmd
}

func (e *env) storeKey(name string, priv nike.PrivateKey) error {
	if e.cfg.Keystore == nil {
		return errors.New("no Keystore block configured")
	}
	cp, ok := priv.(*scheme.PrivateKey)
	if !ok {
		return errors.New("only isogeny keys can be stored")
	}
	ks, err := keystore.Open(e.cfg.Keystore.Path, e.cfg.Keystore.Bucket, e.params)
	if err != nil {
		return err
	}
	defer ks.Close()
	return ks.Put(name, cp.Key(), cp.Public().(*scheme.PublicKey).Curve(), false)
}

func newPubkeyCommand(e *env) *cobra.Command {
	var (
		schemeName string
		keyFile    string
	)
	cmd := &cobra.Command{
		Use:   "pubkey",
		Short: "Print the public key of a private key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.scheme(schemeName)
			if err != nil {
				return err
			}
			priv, err := nikepem.FromPrivatePEMFile(keyFile, s)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), nikepem.ToPublicPEMString(priv.Public(), s))
			return nil
		},
	}
	cmd.Flags().StringVarP(&schemeName, "scheme", "s", "", "NIKE scheme name")
	cmd.Flags().StringVarP(&keyFile, "key", "k", "", "private key PEM file")
	cmd.MarkFlagRequired("key")
	return cmd
}

func newDeriveCommand(e *env) *cobra.Command {
	var (
		schemeName string
		keyFile    string
		peerFile   string
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a shared secret from a private key and a peer public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.scheme(schemeName)
			if err != nil {
				return err
			}
			priv, err := nikepem.FromPrivatePEMFile(keyFile, s)
			if err != nil {
				return err
			}
			peer, err := nikepem.FromPublicPEMFile(peerFile, s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(s.DeriveSecret(priv, peer)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&schemeName, "scheme", "s", "", "NIKE scheme name")
	cmd.Flags().StringVarP(&keyFile, "key", "k", "", "private key PEM file")
	cmd.Flags().StringVar(&peerFile, "peer", "", "peer public key PEM file")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("peer")
	return cmd
}

func newWalkCommand(e *env) *cobra.Command {
	var (
		a string
		b string
		l int
		k int64
	)
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Take k steps of degree l from a curve",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := e.params.Base
			if a != "" {
				av, ok := new(big.Int).SetString(a, 10)
				if !ok {
					return fmt.Errorf("invalid A %q", a)
				}
				bv, ok := new(big.Int).SetString(b, 10)
				if !ok {
					return fmt.Errorf("invalid B %q", b)
				}
				var err error
				if c, err = curves.NewMontgomery(e.params.F, av, bv); err != nil {
					return err
				}
			}
			w := isogeny.NewWalker(e.params, nil, e.logger("walk"))
			out, err := w.Walk(c, l, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  -[%d^%d]-> %s\n  j = %s\n", c, l, k, out.Canonical(), out.JInvariant())
			return nil
		},
	}
	cmd.Flags().StringVar(&a, "a", "", "Montgomery A of the start curve (default: the base curve)")
	cmd.Flags().StringVar(&b, "b", "1", "Montgomery B of the start curve")
	cmd.Flags().IntVar(&l, "l", 3, "isogeny degree")
	cmd.Flags().Int64Var(&k, "k", 1, "signed number of steps")
	return cmd
}
