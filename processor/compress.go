package processor

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Compress сжимает данные с использованием Snappy
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decompress распаковывает данные, сжатые Snappy
func Decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки snappy: %w", err)
	}
	return decompressed, nil
}

// PackJSON сериализует значение в JSON и сжимает его для архивного хранения
func PackJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации: %w", err)
	}
	return Compress(raw), nil
}

// UnpackJSON распаковывает и десериализует значение, упакованное PackJSON
func UnpackJSON(data []byte, v interface{}) error {
	raw, err := Decompress(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}
