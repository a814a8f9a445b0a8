package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/davidahmann/courseledger/internal/auth"
	"github.com/davidahmann/courseledger/internal/crypto"
)

const defaultAddr = "http://localhost:8080"

func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

var httpClient = &http.Client{Timeout: 30 * time.Second}

// usageError marks bad invocations, which exit with code 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// errMismatch exits 1; the command has already printed its result.
var errMismatch = errors.New("proof mismatch")

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)

	err := root.Execute()
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMismatch):
		return 1
	case errors.As(err, &ue):
		fmt.Fprintln(stderr, ue.msg)
		return 2
	case strings.Contains(err.Error(), "unknown command"),
		strings.Contains(err.Error(), "unknown flag"),
		strings.Contains(err.Error(), "accepts "),
		strings.Contains(err.Error(), "required flag"):
		fmt.Fprintln(stderr, err.Error())
		return 2
	default:
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "courseledger",
		Short:         "CourseLedger CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return usageError{msg: "a command is required"}
		},
	}
	root.AddCommand(
		newOrderIDCmd(stdout),
		newProofCmd(stdout),
		newCheckProofCmd(stdout),
		newSearchCmd(stdout),
		newVerifyCmd(stdout),
	)
	return root
}

type orderFlags struct {
	course string
	buyer  string
}

func (f *orderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.course, "course", "", "catalog course id")
	cmd.Flags().StringVar(&f.buyer, "buyer", "", "buyer account address")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("buyer")
}

func (f *orderFlags) orderID() (common.Hash, error) {
	if !common.IsHexAddress(f.buyer) {
		return common.Hash{}, usageError{msg: fmt.Sprintf("--buyer %q is not an address", f.buyer)}
	}
	return crypto.ComputeOrderIdentifier(f.course, common.HexToAddress(f.buyer))
}

func newOrderIDCmd(stdout io.Writer) *cobra.Command {
	var flags orderFlags
	cmd := &cobra.Command{
		Use:   "order-id",
		Short: "Print the order identifier and bytes16 course id for a course and buyer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := flags.orderID()
			if err != nil {
				return err
			}
			courseHex, err := crypto.HexCourseID(flags.course)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "hash=%s course_id=%s\n", id.Hex(), courseHex)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProofCmd(stdout io.Writer) *cobra.Command {
	var flags orderFlags
	var email string
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Print the email commitment a purchase would record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := flags.orderID()
			if err != nil {
				return err
			}
			proof, err := crypto.ComputeCommitment(email, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "hash=%s proof=%s\n", id.Hex(), proof.Hex())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "buyer email")
	return cmd
}

func newCheckProofCmd(stdout io.Writer) *cobra.Command {
	var flags orderFlags
	var email, proofHex string
	cmd := &cobra.Command{
		Use:   "check-proof",
		Short: "Check an email against a recorded commitment offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			want, err := crypto.ParseHash(proofHex, true)
			if err != nil {
				return usageError{msg: fmt.Sprintf("--proof: %v", err)}
			}
			id, err := flags.orderID()
			if err != nil {
				return err
			}
			got, err := crypto.RecomputeCommitment(email, id)
			if err != nil {
				return err
			}
			if !crypto.ProofsEqual(got, want) {
				fmt.Fprintf(stdout, "match=false hash=%s\n", id.Hex())
				return errMismatch
			}
			fmt.Fprintf(stdout, "match=true hash=%s\n", id.Hex())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "buyer email")
	cmd.Flags().StringVar(&proofHex, "proof", "", "recorded commitment")
	_ = cmd.MarkFlagRequired("proof")
	return cmd
}

type gatewayFlags struct {
	addr    string
	token   string
	account string
	jsonOut bool
}

func (f *gatewayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", envOrDefault("COURSELEDGER_ADDR", defaultAddr), "gateway address")
	cmd.Flags().StringVar(&f.token, "token", envOrDefault("COURSELEDGER_TOKEN", os.Getenv(auth.DevTokenEnv)), "bearer token")
	cmd.Flags().StringVar(&f.account, "account", os.Getenv("COURSELEDGER_ACCOUNT"), "admin account address")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print raw JSON response")
}

func (f *gatewayFlags) do(method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, strings.TrimRight(f.addr, "/")+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	if f.account != "" {
		req.Header.Set(auth.AccountHeader, f.account)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}

func newSearchCmd(stdout io.Writer) *cobra.Command {
	var flags gatewayFlags
	cmd := &cobra.Command{
		Use:   "search <hash>",
		Short: "Look up a purchase by order identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			respBody, status, err := flags.do(http.MethodGet, "/v1/admin/search/"+args[0], nil)
			if err != nil {
				return err
			}
			if status == http.StatusNotFound {
				fmt.Fprintf(stdout, "found=false hash=%s\n", args[0])
				return errMismatch
			}
			if status != http.StatusOK {
				return fmt.Errorf("search failed: %s", strings.TrimSpace(string(respBody)))
			}
			if flags.jsonOut {
				_, _ = stdout.Write(respBody)
				return nil
			}
			var payload struct {
				Hash    string   `json:"hash"`
				Owner   string   `json:"owner"`
				State   string   `json:"state"`
				Price   string   `json:"paid_price"`
				Actions []string `json:"actions"`
			}
			if err := json.Unmarshal(respBody, &payload); err != nil {
				return fmt.Errorf("invalid response: %w", err)
			}
			fmt.Fprintf(stdout, "found=true hash=%s owner=%s state=%s paid=%s actions=%s\n",
				payload.Hash, payload.Owner, payload.State, payload.Price, strings.Join(payload.Actions, ","))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newVerifyCmd(stdout io.Writer) *cobra.Command {
	var flags gatewayFlags
	var email string
	cmd := &cobra.Command{
		Use:   "verify <hash>",
		Short: "Ask the gateway whether an email matches a purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			respBody, status, err := flags.do(http.MethodPost, "/v1/admin/verify", map[string]string{
				"hash":  args[0],
				"email": email,
			})
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("verify failed: %s", strings.TrimSpace(string(respBody)))
			}
			if flags.jsonOut {
				_, _ = stdout.Write(respBody)
				return nil
			}
			var payload struct {
				Hash     string `json:"hash"`
				Verified bool   `json:"verified"`
			}
			if err := json.Unmarshal(respBody, &payload); err != nil {
				return fmt.Errorf("invalid response: %w", err)
			}
			fmt.Fprintf(stdout, "verified=%t hash=%s\n", payload.Verified, payload.Hash)
			if !payload.Verified {
				return errMismatch
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "email to check")
	return cmd
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
