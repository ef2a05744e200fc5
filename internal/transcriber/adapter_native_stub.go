//go:build !whispercpp

package transcriber

import "errors"

var errNativeUnavailable = errors.New("whisper-native provider not compiled in: rebuild with -tags whispercpp")

func NewNativeAdapter(modelPath, language string, threads int) (BatchAdapter, error) {
	return nil, errNativeUnavailable
}
