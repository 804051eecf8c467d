package sim

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"swarmnet-sim/internal/telemetry"
)

// FileWriter writes link state and delivery data to JSONL files. Paths
// ending in ".gz" are gzip-compressed on the fly.
type FileWriter struct {
	linkFile     *os.File
	deliveryFile *os.File
	linkGz       *gzip.Writer
	deliveryGz   *gzip.Writer
	linkEnc      *json.Encoder
	deliveryEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. deliveryPath may be empty to
// skip the delivery log.
func NewFileWriter(linkPath, deliveryPath string) (*FileWriter, error) {
	fw := &FileWriter{}

	lf, err := os.Create(linkPath)
	if err != nil {
		return nil, err
	}
	fw.linkFile = lf
	var lw io.Writer = lf
	if strings.HasSuffix(linkPath, ".gz") {
		fw.linkGz = gzip.NewWriter(lf)
		lw = fw.linkGz
	}
	fw.linkEnc = json.NewEncoder(lw)

	if deliveryPath != "" {
		df, err := os.Create(deliveryPath)
		if err != nil {
			lf.Close()
			return nil, err
		}
		fw.deliveryFile = df
		var dw io.Writer = df
		if strings.HasSuffix(deliveryPath, ".gz") {
			fw.deliveryGz = gzip.NewWriter(df)
			dw = fw.deliveryGz
		}
		fw.deliveryEnc = json.NewEncoder(dw)
	}
	return fw, nil
}

// WriteLinkState logs a single link state row.
func (f *FileWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	return f.linkEnc.Encode(row)
}

// WriteLinkStates logs multiple link state rows.
func (f *FileWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	for _, r := range rows {
		if err := f.WriteLinkState(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteDelivery logs a single delivery row, if enabled.
func (f *FileWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	if f.deliveryEnc == nil {
		return nil
	}
	return f.deliveryEnc.Encode(row)
}

// WriteDeliveries logs multiple delivery rows.
func (f *FileWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	for _, r := range rows {
		if err := f.WriteDelivery(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes compressors and closes the underlying files.
func (f *FileWriter) Close() error {
	var first error
	for _, gz := range []*gzip.Writer{f.linkGz, f.deliveryGz} {
		if gz != nil {
			if err := gz.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	for _, file := range []*os.File{f.linkFile, f.deliveryFile} {
		if file != nil {
			if err := file.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
