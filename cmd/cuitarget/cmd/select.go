package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/cuitarget/internal/core/api"
	"github.com/solatis/cuitarget/internal/ontology"
	"github.com/solatis/cuitarget/internal/targeting"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Print the targets selected by a filter set",
	Long: `select evaluates a {"targets": {...}, "options": {...}} filter set and prints one
JSON object per selected target. The filter set comes from --filters (inline JSON,
or @path to a JSON file) or else from the selector section of the config file.
With --server the request is sent to a running cuitarget serve instead.`,
	Args: cobra.NoArgs,
	RunE: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().String("filters", "", `filter set as JSON, or @file`)
	selectCmd.Flags().Int("limit", 0, "stop after this many targets (0 = no limit)")
	selectCmd.Flags().String("server", "", "host:port of a cuitarget gRPC server to query")
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	filters, _ := cmd.Flags().GetString("filters")
	input, err := selectorInput(filters, cfg.Selector)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	if addr, _ := cmd.Flags().GetString("server"); addr != "" {
		return selectRemote(cmd, addr, input, limit)
	}

	sel, err := targeting.SelectorFromDict(input)
	if err != nil {
		return err
	}

	database, store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer database.Close()

	tables, err := store.LoadTables(ctx)
	if err != nil {
		return err
	}
	lookup := ontology.New(tables, log)

	enc := json.NewEncoder(cmd.OutOrStdout())
	n := 0
	for ti := range sel.Targets(lookup) {
		if limit > 0 && n == limit {
			break
		}
		if err := enc.Encode(ti); err != nil {
			return err
		}
		n++
	}
	log.Info().Int("count", n).Msg("selection written")
	return nil
}

// selectorInput resolves --filters, falling back to the configured selector.
func selectorInput(flag string, fromConfig map[string]any) (map[string]any, error) {
	if flag == "" {
		if fromConfig == nil {
			return map[string]any{}, nil
		}
		return fromConfig, nil
	}

	raw := []byte(flag)
	if path, ok := strings.CutPrefix(flag, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read filters: %w", err)
		}
		raw = data
	}

	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("filters must be a JSON object: %w", err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}

func selectRemote(cmd *cobra.Command, addr string, input map[string]any, limit int) error {
	if limit > 0 {
		input["limit"] = limit
	}
	req, err := structpb.NewStruct(input)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := api.NewTargetingClient(conn).Select(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), resp)
}

func writeResponse(w io.Writer, resp *structpb.Struct) error {
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
