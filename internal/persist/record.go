package persist

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/signalsfoundry/surface-sampler/model"
)

// RecordNodeName is the child node name records are saved under.
const RecordNodeName = "SAMPLE_RECORD"

const (
	keyID          = "id"
	keySubject     = "subjectID"
	keyTitle       = "title"
	keyData        = "data"
	keyTransmit    = "xmit"
	keyLab         = "labBoost"
	keyViaTransfer = "triggered"
	keyInstrument  = "container"
)

// SaveRecord writes rec into node.
func SaveRecord(rec model.SampleRecord, node *Node) {
	node.SetValue(keyID, rec.ID)
	node.SetValue(keySubject, rec.SubjectID)
	node.SetValue(keyTitle, rec.Title)
	node.SetValue(keyData, formatFloat(rec.DataAmount))
	node.SetValue(keyTransmit, formatFloat(rec.TransmitValue))
	node.SetValue(keyLab, formatFloat(rec.LabValue))
	node.SetValue(keyViaTransfer, strconv.FormatBool(rec.ViaTransfer))
	node.SetValue(keyInstrument, strconv.FormatUint(uint64(rec.InstrumentID), 10))
}

// LoadRecord reads a record written by SaveRecord. A record saved without
// an id is given a fresh one so it stays addressable.
func LoadRecord(node *Node) (model.SampleRecord, error) {
	var rec model.SampleRecord
	if node == nil {
		return rec, fmt.Errorf("load record: nil node")
	}
	subject, ok := node.GetValue(keySubject)
	if !ok || subject == "" {
		return rec, fmt.Errorf("load record: missing %s", keySubject)
	}
	rec.SubjectID = subject
	if rec.ID, _ = node.GetValue(keyID); rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Title, _ = node.GetValue(keyTitle)

	var err error
	if rec.DataAmount, err = parseFloat(node, keyData); err != nil {
		return rec, err
	}
	if rec.TransmitValue, err = parseFloat(node, keyTransmit); err != nil {
		return rec, err
	}
	if rec.LabValue, err = parseFloat(node, keyLab); err != nil {
		return rec, err
	}
	if raw, ok := node.GetValue(keyViaTransfer); ok {
		if rec.ViaTransfer, err = strconv.ParseBool(raw); err != nil {
			return rec, fmt.Errorf("load record: %s: %w", keyViaTransfer, err)
		}
	}
	if raw, ok := node.GetValue(keyInstrument); ok {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return rec, fmt.Errorf("load record: %s: %w", keyInstrument, err)
		}
		rec.InstrumentID = uint32(id)
	}
	return rec, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(node *Node, key string) (float64, error) {
	raw, ok := node.GetValue(key)
	if !ok {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("load record: %s: %w", key, err)
	}
	return f, nil
}
