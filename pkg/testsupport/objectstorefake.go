package testsupport

import (
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/weberc2/blockfs/pkg/objectstore"
)

var _ objectstore.ObjectStore = ObjectStoreFake{}

type ObjectKey struct {
	Bucket string
	Key    string
}

// ObjectStoreFake keeps objects in memory. Tests may reach into the map to
// inspect or corrupt stored bytes.
type ObjectStoreFake map[ObjectKey][]byte

func (osf ObjectStoreFake) PutObject(bucket, key string, data io.ReadSeeker) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	osf[ObjectKey{bucket, key}] = b
	return nil
}

func (osf ObjectStoreFake) GetObject(bucket, key string) (io.ReadCloser, error) {
	if b, ok := osf[ObjectKey{bucket, key}]; ok {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	return nil, &objectstore.ObjectNotFoundErr{Bucket: bucket, Key: key}
}

// ListObjects sorts its result; S3 lists keys in lexical order too.
func (osf ObjectStoreFake) ListObjects(bucket, prefix string) ([]string, error) {
	keys := []string{}
	for k := range osf {
		if k.Bucket == bucket && strings.HasPrefix(k.Key, prefix) {
			keys = append(keys, k.Key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (osf ObjectStoreFake) DeleteObject(bucket, key string) error {
	delete(osf, ObjectKey{bucket, key})
	return nil
}
