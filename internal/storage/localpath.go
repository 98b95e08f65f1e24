package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalPath returns a filesystem path holding the object. Disk-backed stores
// hand out the object path directly, others are downloaded to a temporary
// file that cleanup removes.
func LocalPath(ctx context.Context, st Storage, key string) (string, func(), error) {
	noop := func() {}

	if p, ok := st.(pather); ok {
		path, err := p.Path(key)
		if err != nil {
			return "", noop, err
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", noop, ErrNotFound
			}

			return "", noop, err
		}

		return path, noop, nil
	}

	body, err := st.Get(ctx, key)
	if err != nil {
		return "", noop, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "object-*"+filepath.Ext(key))
	if err != nil {
		return "", noop, err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, err
	}

	return tmp.Name(), cleanup, nil
}
