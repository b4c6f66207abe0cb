// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/sshpki/core"
	"github.com/toeirei/sshpki/internal/config"
	"github.com/toeirei/sshpki/internal/core/crypto/key"
	"github.com/toeirei/sshpki/internal/core/crypto/registry"
	"github.com/toeirei/sshpki/internal/logging"
)

var (
	cfgFile string
	debug   bool
	appCfg  config.Config
)

// rootCmd is the base command every subcommand below hangs off of.
var rootCmd = &cobra.Command{
	Use:           "sshpki",
	Short:         "Generate, import, and export SSH keys, certificates, and signatures",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetDebug(debug)
		var configFile *string
		if cfgFile != "" {
			configFile = &cfgFile
		}
		cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), configFile)
		if err != nil {
			return err
		}
		appCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to sshpki.yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(genkeyCmd, showCmd, exportPubCmd, certAttachCmd)
}

// Execute runs the root command; callers (main) translate a returned error
// into a nonzero exit status.
func Execute() error {
	return rootCmd.Execute()
}

func limitsFromConfig() core.Limits {
	return core.Limits{
		MaxPrivateKeySize:   appCfg.Security.MaxPrivateKeySize,
		MaxPublicKeySize:    appCfg.Security.MaxPublicKeySize,
		DefaultPKCS11Module: appCfg.PKCS11.ModulePath,
	}
}

var (
	genkeyType    string
	genkeyBits    int
	genkeyOut     string
	genkeyComment string
	genkeyNoPass  bool
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a new key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := registry.TagOf(algorithmAlias(genkeyType))
		if tag == registry.Unknown {
			return fmt.Errorf("unknown algorithm %q", genkeyType)
		}

		k, err := core.Generate(tag, genkeyBits)
		if err != nil {
			return err
		}

		var passphrase []byte
		if !genkeyNoPass {
			passphrase, err = promptPassphrase("Enter passphrase (empty for none): ")
			if err != nil {
				return err
			}
		}

		out := genkeyOut
		if out == "" {
			out = "id_" + genkeyType
		}
		if err := core.ExportPrivateKeyFile(k, out, passphrase, genkeyComment); err != nil {
			return err
		}
		if err := core.ExportPublicKeyFile(k, out+".pub", genkeyComment); err != nil {
			return err
		}
		fmt.Printf("generated %s key pair: %s / %s.pub\n", genkeyType, out, out)
		return nil
	},
}

func init() {
	genkeyCmd.Flags().StringVarP(&genkeyType, "type", "t", "ed25519", "key type (rsa, ecdsa-p256, ecdsa-p384, ecdsa-p521, ed25519, dilithium2)")
	genkeyCmd.Flags().IntVarP(&genkeyBits, "bits", "b", 0, "key size in bits (RSA only)")
	genkeyCmd.Flags().StringVarP(&genkeyOut, "out", "f", "", "output file path (default id_<type>)")
	genkeyCmd.Flags().StringVarP(&genkeyComment, "comment", "C", "", "comment embedded in the public key")
	genkeyCmd.Flags().BoolVarP(&genkeyNoPass, "no-passphrase", "N", false, "skip the passphrase prompt")
}

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a public key or certificate's algorithm and comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := core.ImportPublicKeyFile(args[0], limitsFromConfig())
		if err != nil {
			return err
		}
		fmt.Printf("type: %s\n", registry.NameOf(k.Type()))
		if k.Comment != "" {
			fmt.Printf("comment: %s\n", k.Comment)
		}
		if k.IsCert() {
			cert := k.Certificate()
			fmt.Printf("certificate: serial=%d key-id=%q principals=%v\n", cert.Serial, cert.KeyID, cert.ValidPrincipals)
		}
		return nil
	},
}

var exportPubCmd = &cobra.Command{
	Use:   "export-public [privkey-file]",
	Short: "Export a private key's public half (demoted duplicate)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := promptPassphraseIfTerminal("Passphrase: ")
		if err != nil {
			return err
		}
		k, err := core.ImportPrivateKeyFile(args[0], passphrase, limitsFromConfig())
		if err != nil {
			return err
		}
		pub, err := core.ExportPrivateKeyToPublic(k)
		if err != nil {
			return err
		}
		line, err := key.PasteComment(pub, pub.Comment)
		if err != nil {
			return err
		}
		fmt.Println(line)
		return nil
	},
}

var certAttachCmd = &cobra.Command{
	Use:   "cert-attach [privkey-file] [cert-file]",
	Short: "Attach a signed certificate to a private key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := promptPassphraseIfTerminal("Passphrase: ")
		if err != nil {
			return err
		}
		priv, err := core.ImportPrivateKeyFile(args[0], passphrase, limitsFromConfig())
		if err != nil {
			return err
		}
		cert, err := core.ImportCertFile(args[1], limitsFromConfig())
		if err != nil {
			return err
		}
		attached, err := core.CopyCertToPrivateKey(priv, cert)
		if err != nil {
			return err
		}
		if err := core.ExportPrivateKeyFile(attached, args[0], passphrase, attached.Comment); err != nil {
			return err
		}
		fmt.Println("certificate attached")
		return nil
	},
}

// algorithmAlias maps the CLI's short type names onto the wire identifiers
// registry.TagOf understands.
func algorithmAlias(t string) string {
	switch strings.ToLower(t) {
	case "rsa":
		return "ssh-rsa"
	case "ecdsa-p256", "ecdsa256":
		return "ecdsa-sha2-nistp256"
	case "ecdsa-p384", "ecdsa384":
		return "ecdsa-sha2-nistp384"
	case "ecdsa-p521", "ecdsa521":
		return "ecdsa-sha2-nistp521"
	case "ed25519":
		return "ssh-ed25519"
	case "dilithium2":
		return "ssh-dilithium2@openssh.com"
	default:
		return t
	}
}

func promptPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		return pass, nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// promptPassphraseIfTerminal only prompts when stdin is an interactive
// terminal, so scripted invocations piping an empty passphrase don't hang.
func promptPassphraseIfTerminal(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil
	}
	return promptPassphrase(prompt)
}
