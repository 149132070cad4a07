package cli

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/client"
	"github.com/feral-file/ff-drug-registry/internal/walletauth"
)

// Output formats
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ErrLedgerInvalid is returned by verify-ledger when the registry reports a broken chain
var ErrLedgerInvalid = errors.New("ledger verification failed")

type options struct {
	registryURL string
	output      string
	privateKey  string
	token       string
	timeout     time.Duration
	retries     uint64
}

// NewRootCommand builds the drugctl command tree writing results to out
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "drugctl",
		Short: "Register and query drug provenance records",
		Long: `drugctl talks to the drug registry API.

Reads are public. Registering a drug needs credentials: either a wallet
private key (--private-key, or DRUG_REGISTRY_PRIVATE_KEY) which signs a
login message so the drug is owned by the wallet address, or a bearer
token (--token) issued for a manufacturer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case OutputJSON, OutputYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q", opts.output)
			}
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.registryURL, "registry-url", envOr("DRUG_REGISTRY_URL", "http://localhost:8080"), "Registry API base URL")
	flags.StringVarP(&opts.output, "output", "o", OutputJSON, "Output format (json|yaml)")
	flags.StringVar(&opts.privateKey, "private-key", os.Getenv("DRUG_REGISTRY_PRIVATE_KEY"), "Hex-encoded secp256k1 key used to sign wallet credentials")
	flags.StringVar(&opts.token, "token", os.Getenv("DRUG_REGISTRY_TOKEN"), "Bearer token used instead of a wallet key")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request timeout")
	flags.Uint64Var(&opts.retries, "retries", 3, "Retries for read requests on 429, 5xx and network errors")

	root.AddCommand(
		newRegisterCommand(opts),
		newGetCommand(opts),
		newExistsCommand(opts),
		newExpiredCommand(opts),
		newListCommand(opts),
		newCountCommand(opts),
		newTotalCommand(opts),
		newEventsCommand(opts),
		newVerifyLedgerCommand(opts),
	)

	return root
}

// Execute runs drugctl with os.Args
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}

func (o *options) client() *client.Client {
	return client.New(client.Config{
		BaseURL:    o.registryURL,
		MaxRetries: o.retries,
	}, adapter.NewHTTPClient(o.timeout), adapter.NewJSON())
}

// authorization builds the Authorization header from the configured credentials
func (o *options) authorization() (string, error) {
	switch {
	case o.privateKey != "":
		key, err := parsePrivateKey(o.privateKey)
		if err != nil {
			return "", err
		}
		return walletauth.Header(key, time.Now().Unix())
	case o.token != "":
		return "Bearer " + o.token, nil
	default:
		return "", errors.New("registering requires --private-key or --token")
	}
}

func parsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// print renders v in the selected format. YAML goes through the JSON
// encoding so both formats share the API's field names.
func (o *options) print(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()

	if o.output == OutputYAML {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		// UseNumber keeps unix timestamps integral in YAML
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var generic any
		if err := dec.Decode(&generic); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}

		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
