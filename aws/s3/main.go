// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package s3

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/dlk"
	"github.com/pkg/errors"
)

// Main contains the configuration for copying the objects under an S3 prefix
// into a local directory, which can then be given as data files to the csv
// or polyglot commands.
type Main struct {
	Bucket   string `help:"S3 bucket name from which to read objects."`
	Prefix   string `help:"Only objects in the bucket matching this prefix will be used."`
	Region   string `help:"AWS region to use."`
	Endpoint string `help:"Custom S3 endpoint (for S3 compatible stores)."`
	OutDir   string `help:"Directory to write objects into. Keys are kept as relative paths."`
	LogPath  string `help:"Log file to write to. Empty means stderr."`
	Verbose  bool   `help:"Enable verbose logging."`

	client *Client
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Region: "us-east-1",
		OutDir: ".",
	}
}

// SetAPI makes Run use api instead of connecting to AWS.
func (m *Main) SetAPI(api s3iface.S3API) {
	m.client = &Client{api: api}
}

// Run copies every object to OutDir.
func (m *Main) Run() (err error) {
	log, closer, err := dlk.OpenLogger(m.LogPath, m.Verbose)
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer closer.Close()

	if m.client == nil {
		m.client, err = NewClient(OptRegion(m.Region), OptEndpoint(m.Endpoint))
		if err != nil {
			return errors.Wrap(err, "getting s3 client")
		}
	}
	src, err := NewRawSource(context.Background(), m.client, m.Bucket, m.Prefix)
	if err != nil {
		return errors.Wrap(err, "getting s3 source")
	}
	for {
		obj, err := src.NextReader()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "getting next object")
		}
		name, err := m.localPath(obj.Name())
		if err != nil {
			obj.Close()
			return err
		}
		n, err := writeFile(name, obj)
		obj.Close()
		if err != nil {
			return errors.Wrapf(err, "copying %s", obj.Name())
		}
		log.Printf("wrote %d bytes to %s", n, name)
	}
}

func (m *Main) localPath(key string) (string, error) {
	name := filepath.Join(m.OutDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(m.OutDir, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", errors.Errorf("object key '%s' escapes the output directory", key)
	}
	return name, nil
}

func writeFile(name string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return 0, errors.Wrap(err, "making directory")
	}
	f, err := os.Create(name)
	if err != nil {
		return 0, errors.Wrap(err, "creating file")
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, errors.Wrap(err, "writing file")
	}
	return n, errors.Wrap(f.Close(), "closing file")
}
