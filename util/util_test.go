package util

import (
	"bytes"
	"testing"
)

func TestPadAndTrimValue(t *testing.T) {
	input := []byte(`{"name": "misaka"}`)
	padded := PadValue(input, 64, '0')
	if len(padded) != 64 {
		t.Error("padded length is wrong: ", len(padded))
		return
	}
	trimmed := TrimValue(padded, '0')
	if bytes.Equal(trimmed, input) != true {
		t.Error("trimmed value is not equal to input: ", string(trimmed))
		return
	}
}

func TestPadValueFullSlot(t *testing.T) {
	input := make([]byte, 64)
	for i := range input {
		input[i] = 'a'
	}
	padded := PadValue(input, 64, '0')
	if bytes.Equal(padded, input) != true {
		t.Error("full slot value should be returned unchanged")
		return
	}
}

func TestTrimValueAllFiller(t *testing.T) {
	input := []byte("0000")
	trimmed := TrimValue(input, '0')
	if len(trimmed) != 0 {
		t.Error("all filler slot should trim to empty: ", string(trimmed))
		return
	}
}
