package storageutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"gocloud.dev/blob"

	"github.com/getsentry/calltracer/internal/testutil"
)

var fileBlobBucket *blob.Bucket

type document struct {
	SessionID string `json:"session_id"`
	Calls     []int  `json:"calls"`
}

func TestMain(m *testing.M) {
	temporaryDirectory, err := os.MkdirTemp(os.TempDir(), "calltracer-traces-*")
	if err != nil {
		log.Fatalf("couldn't create a temporary directory: %s", err.Error())
	}

	fileBlobBucket, err = OpenBucket(context.Background(), "file://localhost/"+temporaryDirectory)
	if err != nil {
		log.Fatalf("couldn't open a local filesystem bucket: %s", err.Error())
	}

	code := m.Run()

	if err := fileBlobBucket.Close(); err != nil {
		log.Printf("couldn't close the local filesystem bucket: %s", err.Error())
	}
	if err := os.RemoveAll(temporaryDirectory); err != nil {
		log.Printf("couldn't remove the temporary directory: %s", err.Error())
	}

	os.Exit(code)
}

func TestCompressedRoundTrip(t *testing.T) {
	ctx := context.Background()
	memBucket, err := OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("we should be able to open a memory bucket: %v", err)
	}
	defer memBucket.Close()

	for name, b := range map[string]*blob.Bucket{"file": fileBlobBucket, "mem": memBucket} {
		t.Run(name, func(t *testing.T) {
			want := document{SessionID: uuid.New().String(), Calls: []int{1, 2, 3}}
			objectName := want.SessionID + ".json.lz4"
			if err := CompressedWrite(ctx, b, objectName, want); err != nil {
				t.Fatalf("we should be able to write: %v", err)
			}

			var got document
			if err := UnmarshalCompressed(ctx, b, objectName, &got); err != nil {
				t.Fatalf("we should be able to read: %v", err)
			}
			if diff := testutil.Diff(got, want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestObjectIsCompressed(t *testing.T) {
	ctx := context.Background()
	objectName := uuid.New().String()
	if err := CompressedWrite(ctx, fileBlobBucket, objectName, document{SessionID: "s", Calls: []int{4}}); err != nil {
		t.Fatalf("we should be able to write: %v", err)
	}
	raw, err := fileBlobBucket.ReadAll(ctx, objectName)
	if err != nil {
		t.Fatalf("we should be able to read the object: %v", err)
	}
	uncompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	if err != nil {
		t.Fatalf("we should be able to uncompress the data: %v", err)
	}
	if want := []byte(`{"session_id":"s","calls":[4]}` + "\n"); !bytes.Equal(uncompressed, want) {
		t.Fatalf("wanted: %s, got: %s", want, uncompressed)
	}
}

func TestUnmarshalMissingObject(t *testing.T) {
	var d document
	err := UnmarshalCompressed(context.Background(), fileBlobBucket, uuid.New().String(), &d)
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}
