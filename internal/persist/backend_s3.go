/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/launix-de/rkv/internal/resp3"
)

// S3 layout, one object per concern under <prefix>/<name>/:
//
//	dump.rdb   snapshot, overwritten wholesale on every SAVE
//	appendonly.aof   write log; S3 has no append, so writes are buffered in
//	                 memory and the whole object is replaced on Sync/Close,
//	                 same trade-off memcp's S3Storage documents for its log
//	                 segments (storage/persistence-s3.go).
type S3Factory struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

func (f *S3Factory) Open(name string) Backend {
	pfx := strings.TrimSuffix(f.Prefix, "/")
	if pfx != "" {
		pfx = pfx + "/" + name
	} else {
		pfx = name
	}
	return &S3Backend{factory: f, prefix: pfx}
}

type S3Backend struct {
	factory *S3Factory
	prefix  string

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func (s *S3Backend) ensureOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return
	}

	ctx := context.Background()
	var opts []func(*awsconfig.LoadOptions) error
	if s.factory.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.factory.Region))
	}
	if s.factory.AccessKeyID != "" && s.factory.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.factory.AccessKeyID, s.factory.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		panic(fmt.Sprintf("persist: S3Backend: failed to load AWS config: %v", err))
	}

	var s3Opts []func(*s3.Options)
	if s.factory.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.factory.Endpoint) })
	}
	if s.factory.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	s.client = s3.NewFromConfig(cfg, s3Opts...)
	s.opened = true
}

func (s *S3Backend) key(name string) string { return s.prefix + "/" + name }

func (s *S3Backend) ReadSnapshot() ([]byte, error) {
	s.ensureOpen()
	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.factory.Bucket),
		Key:    aws.String(s.key("dump.rdb")),
	})
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *S3Backend) WriteSnapshot(data []byte) error {
	s.ensureOpen()
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.factory.Bucket),
		Key:    aws.String(s.key("dump.rdb")),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *S3Backend) OpenLog() (Logfile, error) {
	s.ensureOpen()
	existing, _ := s.readLogObject()
	return &s3Logfile{s: s, buf: *bytes.NewBuffer(existing)}, nil
}

func (s *S3Backend) ReplayLog() (<-chan []byte, Logfile, error) {
	s.ensureOpen()
	existing, _ := s.readLogObject()

	out := make(chan []byte, 64)
	if len(existing) == 0 {
		close(out)
	} else {
		go func() {
			defer close(out)
			r := resp3.NewReader(bytes.NewReader(existing))
			for {
				args, err := r.ReadCommand()
				if err != nil || args == nil {
					return
				}
				elems := make([]resp3.Frame, len(args))
				for i, a := range args {
					elems[i] = resp3.BlobString(a)
				}
				out <- resp3.Encode(nil, resp3.Array(elems...))
			}
		}()
	}

	return out, &s3Logfile{s: s, buf: *bytes.NewBuffer(existing)}, nil
}

func (s *S3Backend) readLogObject() ([]byte, error) {
	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.factory.Bucket),
		Key:    aws.String(s.key("appendonly.aof")),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *S3Backend) RemoveLog() error {
	s.ensureOpen()
	_, err := s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.factory.Bucket),
		Key:    aws.String(s.key("appendonly.aof")),
	})
	return err
}

func (s *S3Backend) Remove() error {
	s.ensureOpen()
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.factory.Bucket),
		Prefix: aws.String(s.prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
				Bucket: aws.String(s.factory.Bucket),
				Key:    obj.Key,
			})
		}
	}
	return nil
}

// s3Logfile buffers appended records in memory (S3 objects can't be
// appended to) and replaces the whole appendonly.aof object on Sync/Close.
type s3Logfile struct {
	s   *S3Backend
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *s3Logfile) Write(record []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.buf.Write(record)
	return err
}

func (l *s3Logfile) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(l.s.factory.Bucket),
		Key:    aws.String(l.s.key("appendonly.aof")),
		Body:   bytes.NewReader(l.buf.Bytes()),
	})
	return err
}

func (l *s3Logfile) Close() error {
	return l.Sync()
}
