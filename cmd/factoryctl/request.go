package main

import (
	"encoding/base64"
	"fmt"
	"os"

	factory "github.com/goliatone/go-factory"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// requestFile is the YAML form of a signed request. Payload is the JSON body
// as text; Signature is base64.
type requestFile struct {
	Signer    factory.Identity `yaml:"signer"`
	Operation string           `yaml:"operation"`
	Target    factory.Identity `yaml:"target"`
	Payload   string           `yaml:"payload,omitempty"`
	Signature string           `yaml:"signature"`
}

func toRequestFile(req factory.SignedRequest) requestFile {
	return requestFile{
		Signer:    req.Signer,
		Operation: req.Operation,
		Target:    req.Target,
		Payload:   string(req.Payload),
		Signature: base64.StdEncoding.EncodeToString(req.Signature),
	}
}

func (r requestFile) signedRequest() (factory.SignedRequest, error) {
	signature, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return factory.SignedRequest{}, fmt.Errorf("decode signature: %w", err)
	}
	return factory.SignedRequest{
		Signer:    r.Signer,
		Operation: r.Operation,
		Target:    r.Target,
		Payload:   []byte(r.Payload),
		Signature: signature,
	}, nil
}

func (a *app) signCmd() *cobra.Command {
	var (
		payload string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "sign <operation>",
		Short: "Write a signed request file for later submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(a.cfg.KeyFile)
			if err != nil {
				return err
			}
			f, closer, err := a.openFactory()
			if err != nil {
				return err
			}
			defer closer()

			req, err := factory.SignRequest(key, args[0], f.Address().Key, []byte(payload))
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(toRequestFile(req))
			if err != nil {
				return fmt.Errorf("marshal request: %w", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the request to this file instead of stdout")
	return cmd
}

func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <request.yaml>",
		Short: "Submit a signed request file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			var file requestFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse request %s: %w", args[0], err)
			}
			req, err := file.signedRequest()
			if err != nil {
				return err
			}

			f, closer, err := a.openFactory()
			if err != nil {
				return err
			}
			defer closer()
			if _, err := f.Handle(cmd.Context(), req); err != nil {
				return err
			}
			return a.printRecord(cmd.Context(), cmd, f)
		},
	}
}
