package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/binstruct/internal/config"
	logs "github.com/danmuck/binstruct/internal/logging"
	"github.com/danmuck/binstruct/internal/protocol"
	"github.com/danmuck/binstruct/internal/protocol/frame"
	"github.com/danmuck/binstruct/internal/snapshot"
	"github.com/danmuck/binstruct/internal/wire"
)

var errMismatch = errors.New("re-encoded bytes differ from input")

// input is the shared --hex/--in pair.
type input struct {
	hex  string
	path string
}

func (i *input) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&i.hex, "hex", "", "input bytes as hex (spaces and colons ignored)")
	cmd.Flags().StringVar(&i.path, "in", "", "read input bytes from file")
}

func (i *input) read() ([]byte, error) {
	switch {
	case i.hex != "" && i.path != "":
		return nil, errors.New("use only one of --hex and --in")
	case i.hex != "":
		clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(i.hex)
		b, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("--hex: %w", err)
		}
		return b, nil
	case i.path != "":
		return os.ReadFile(i.path)
	}
	return nil, errors.New("one of --hex or --in is required")
}

func (a *app) schema(path, name string) (*wire.Schema, error) {
	reg, err := a.loader.Load(path)
	if err != nil {
		return nil, err
	}
	return reg.Schema(name)
}

func printValidation(w io.Writer, err error) {
	if agg, ok := wire.AsValidationErrors(err); ok {
		for _, e := range agg {
			fmt.Fprintf(w, "invalid: %v\n", e)
		}
		return
	}
	fmt.Fprintf(w, "invalid: %v\n", err)
}

func newCheckCmd(a *app) *cobra.Command {
	var paths []string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile schema files and list their definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(paths) == 0 {
				paths = a.cfg.Schemas
			}
			if len(paths) == 0 {
				return errors.New("no schema files given and none configured")
			}
			out := cmd.OutOrStdout()
			for _, path := range paths {
				reg, err := a.loader.Load(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d definitions\n", path, reg.Len())
				for _, name := range reg.Names() {
					if s, err := reg.Schema(name); err == nil {
						fmt.Fprintf(out, "  %s\n", s)
						continue
					}
					bs, _ := reg.BitSchema(name)
					fmt.Fprintf(out, "  %s (bits, %d bytes)\n", name, bs.Size())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&paths, "schema", nil, "schema file (TOML or YAML); repeatable")
	return cmd
}

func newParseCmd(a *app) *cobra.Command {
	var (
		in            input
		schemaPath    string
		typeName      string
		allowTrailing bool
		validate      bool
		format        string
	)
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Decode bytes with a schema and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.schema(schemaPath, typeName)
			if err != nil {
				return err
			}
			data, err := in.read()
			if err != nil {
				return err
			}
			inst, err := s.ParseWith(data, wire.DecodeOptions{AllowTrailing: allowTrailing})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := render(out, inst, format); err != nil {
				return err
			}
			if inst.Trailing() > 0 {
				logs.Infof("binstruct parse schema=%s trailing_bytes=%d", s.Name(), inst.Trailing())
			}
			if validate {
				if err := inst.Validate(); err != nil {
					printValidation(out, err)
					return err
				}
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (TOML or YAML)")
	cmd.Flags().StringVar(&typeName, "type", "", "struct definition to parse as")
	cmd.Flags().BoolVar(&allowTrailing, "allow-trailing", false, "accept unconsumed input bytes")
	cmd.Flags().BoolVar(&validate, "validate", false, "run field and struct checks after parsing")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, cbor, diag")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func render(w io.Writer, inst *wire.Instance, format string) error {
	switch format {
	case "json":
		b, err := snapshot.JSON(inst)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "cbor":
		b, err := snapshot.Encode(inst)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, hex.EncodeToString(b))
		return err
	case "diag":
		b, err := snapshot.Encode(inst)
		if err != nil {
			return err
		}
		diag, err := snapshot.Diagnose(b)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, diag)
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

func newRoundtripCmd(a *app) *cobra.Command {
	var (
		in         input
		schemaPath string
		typeName   string
		sync       bool
		validate   bool
	)
	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Parse bytes, re-encode them, and compare",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.schema(schemaPath, typeName)
			if err != nil {
				return err
			}
			data, err := in.read()
			if err != nil {
				return err
			}
			inst, err := s.Parse(data)
			if err != nil {
				return err
			}
			encoded, err := inst.ToBytes(wire.EncodeOptions{Sync: sync, Validate: validate})
			if err != nil {
				if validate {
					printValidation(cmd.OutOrStdout(), err)
				}
				return err
			}
			consumed := data[:len(data)-inst.Trailing()]
			if !bytes.Equal(encoded, consumed) {
				fmt.Fprintf(cmd.OutOrStdout(), "in:  %x\nout: %x\n", consumed, encoded)
				return errMismatch
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s %d bytes\n", s.Name(), len(encoded))
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (TOML or YAML)")
	cmd.Flags().StringVar(&typeName, "type", "", "struct definition to round-trip")
	cmd.Flags().BoolVar(&sync, "sync", false, "run sync rules before encoding")
	cmd.Flags().BoolVar(&validate, "validate", false, "run checks before encoding")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newMessageCmd(a *app) *cobra.Command {
	var (
		in         input
		maxAuth    uint64
		maxPayload uint64
	)
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Decode one framed TLV message",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := in.read()
			if err != nil {
				return err
			}
			limits := frame.Limits{MaxAuthBytes: maxAuth, MaxPayloadBytes: maxPayload}
			msg, err := protocol.Decode(bytes.NewReader(data), limits)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			h := msg.Header
			fmt.Fprintf(out, "message id=%d type=%d flags=%#x auth=%d payload=%d\n",
				h.MessageID, h.MessageType, h.Flags, len(msg.Auth), h.PayloadLen)
			for _, f := range msg.Fields {
				fmt.Fprintf(out, "  field %d type=%d value=%v\n", f.ID, f.Type, fieldText(f.Value))
			}
			return nil
		},
	}
	defaults := frame.DefaultLimits()
	in.register(cmd)
	cmd.Flags().Uint64Var(&maxAuth, "max-auth", defaults.MaxAuthBytes, "largest accepted auth block")
	cmd.Flags().Uint64Var(&maxPayload, "max-payload", defaults.MaxPayloadBytes, "largest accepted payload")
	return cmd
}

func fieldText(v any) any {
	if b, ok := v.([]byte); ok {
		return hex.EncodeToString(b)
	}
	return v
}

func newInitConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config <path>",
		Short: "Write an engine config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote config template to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
