// Package s3 provides the "s3" node kind, which uploads the files of a file
// input to an S3-compatible bucket, one object prefix per row.
//
//	node "s3" "archive" {
//	  endpoint = "minio.lab:9000"
//	  bucket   = "sweeps"
//	  prefix   = "{{ .sweepgrid }}/run_{{ .run_id }}"
//	  region   = "us-east-1"
//
//	  inputs {
//	    files = files(node.sim, ".*\\.(plt|log)")
//	  }
//	}
//
// Credentials come from access_key/secret_key or from the AWS_ACCESS_KEY_ID
// and AWS_SECRET_ACCESS_KEY environment variables.
package s3

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/sweepgrid/internal/config"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/tmpl"
)

// Kind is the node kind handled by this module.
const Kind = "s3"

// DefaultInput is the input holding the files to upload.
const DefaultInput = "files"

// Outputs.
const (
	URIsOutput  = "uris"
	CountOutput = "count"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the node kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Settings are the attributes of an s3 node block.
type Settings struct {
	Endpoint  string `hcl:"endpoint"`
	Bucket    string `hcl:"bucket"`
	Prefix    string `hcl:"prefix,optional"`
	Region    string `hcl:"region,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	Insecure  bool   `hcl:"insecure,optional"`
	Input     string `hcl:"input,optional"`
}

// New is the registry factory.
func New(ctx context.Context, decl *config.Node, conv config.Converter) (node.Node, error) {
	var s Settings
	if err := conv.DecodeBody(ctx, decl.Body, &s); err != nil {
		return nil, err
	}
	return NewNode(decl.Name, s)
}

// Node uploads files.
type Node struct {
	node.Base
	node.State[string]

	settings Settings
	client   *minio.Client
}

// NewNode creates the client; no request is sent before Run.
func NewNode(label string, s Settings) (*Node, error) {
	if s.Endpoint == "" || s.Bucket == "" {
		return nil, fmt.Errorf("endpoint and bucket are required")
	}
	if s.Input == "" {
		s.Input = DefaultInput
	}
	creds := credentials.NewEnvAWS()
	if s.AccessKey != "" || s.SecretKey != "" {
		creds = credentials.NewStaticV4(s.AccessKey, s.SecretKey, "")
	}
	client, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: !s.Insecure,
		Region: s.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &Node{Base: node.NewBase(Kind, label), settings: s, client: client}, nil
}

// Initialize renders the object prefix; Cur holds it for Run.
func (n *Node) Initialize(_ context.Context, row statetable.Row) error {
	prefix, err := tmpl.Render(n.settings.Prefix, n.TemplateData(row))
	if err != nil {
		return fmt.Errorf("prefix: %w", err)
	}
	n.Cur = strings.Trim(prefix, "/")
	return nil
}

// ObjectKey is the key a local file is uploaded under.
func ObjectKey(prefix, file string) string {
	if prefix == "" {
		return filepath.Base(file)
	}
	return path.Join(prefix, filepath.Base(file))
}

func (n *Node) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("node", n.Name(), "bucket", n.settings.Bucket)

	in := n.Input(n.settings.Input)
	if in == nil {
		return fmt.Errorf("missing input %q", n.settings.Input)
	}
	files, err := in.Strings()
	if err != nil {
		return err
	}

	uris := make([]string, 0, len(files))
	for _, f := range files {
		key := ObjectKey(n.Cur, f)
		contentType := mime.TypeByExtension(filepath.Ext(f))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		info, err := n.client.FPutObject(ctx, n.settings.Bucket, key, f, minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", f, err)
		}
		logger.Debug("Uploaded file.", "file", f, "key", key, "size", info.Size)
		uris = append(uris, fmt.Sprintf("s3://%s/%s", n.settings.Bucket, key))
	}
	logger.Info("Uploaded files to S3.", "count", len(uris))

	n.SetOutput(URIsOutput, uris)
	n.SetOutput(CountOutput, len(uris))
	return nil
}

// StateVariables lists the columns the prefix reads.
func (n *Node) StateVariables(row statetable.Row) []string {
	fields, err := tmpl.TextFields(n.settings.Prefix)
	if err != nil {
		return nil
	}
	var vars []string
	for _, f := range fields {
		if row.Has(f) {
			vars = append(vars, f)
		}
	}
	return vars
}
