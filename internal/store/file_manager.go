package store

import (
	"os"
	"perimeterd/internal/models"
	"perimeterd/internal/providers"

	json "github.com/goccy/go-json"
)

type FileManager struct {
	compressor CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor CompressorInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string, state *models.State) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

// LoadFromFile returns nil, nil when the file does not exist yet.
func (f *FileManager) LoadFromFile(fileName string) (*models.State, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return nil, err
	}

	var state models.State
	if err := json.Unmarshal(decompressedData, &state); err != nil {
		return nil, err
	}
	if state.Version > models.StateVersion {
		f.logger.Warnf(providers.TypeStore, "State file version %d is newer than supported %d, loading best-effort", state.Version, models.StateVersion)
	}
	return &state, nil
}
