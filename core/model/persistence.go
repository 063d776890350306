package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// ArtifactFormat と ArtifactVersion は保存ファイルの先頭に書かれるヘッダ
const (
	ArtifactFormat  = "claimfreq-model"
	ArtifactVersion = 1
)

type artifactHeader struct {
	Format  string
	Version int
}

// SaveModel はモデルをgob形式でファイルに保存する
//
// 一時ファイルに書いてから rename するので、失敗しても既存のファイルは壊れない
//
//	reg := linear_model.NewPoissonRegressor()
//	// ... モデルの学習 ...
//	err := model.SaveModel(reg, "model.gob")
func SaveModel(model interface{}, filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	if err := SaveModelToWriter(model, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filename), "failed to move file into place")
}

// LoadModel はファイルからモデルを読み込む
//
// model は読み込み先のポインタ。インターフェース値を含む構造体の場合は、
// 具体型を事前に gob.Register しておく必要がある
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はヘッダとモデルをio.Writerに書く
func SaveModelToWriter(model interface{}, w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(artifactHeader{Format: ArtifactFormat, Version: ArtifactVersion}); err != nil {
		return errors.Wrap(err, "failed to encode header")
	}
	if err := enc.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はヘッダを検証してからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	dec := gob.NewDecoder(r)
	var h artifactHeader
	if err := dec.Decode(&h); err != nil {
		return errors.Wrap(err, "failed to decode header")
	}
	if h.Format != ArtifactFormat {
		return errors.Newf("not a %s artifact (format %q)", ArtifactFormat, h.Format)
	}
	if h.Version != ArtifactVersion {
		return errors.Newf("unsupported artifact version %d, want %d", h.Version, ArtifactVersion)
	}
	if err := dec.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
