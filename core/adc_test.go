package core

import (
	"errors"
	"testing"
)

// mockADC returns scripted readings per channel
type mockADC struct {
	configured map[ADCChannelID]bool
	values     map[ADCChannelID]ADCValue
	fail       map[ADCChannelID]bool
}

func newMockADC() *mockADC {
	return &mockADC{
		configured: make(map[ADCChannelID]bool),
		values:     make(map[ADCChannelID]ADCValue),
		fail:       make(map[ADCChannelID]bool),
	}
}

func (m *mockADC) ConfigureChannel(ch ADCChannelID) error {
	if ch > 3 {
		return errors.New("no such channel")
	}
	m.configured[ch] = true
	return nil
}

func (m *mockADC) ReadRaw(ch ADCChannelID) (ADCValue, error) {
	if m.fail[ch] {
		return 0, errors.New("conversion failed")
	}
	return m.values[ch], nil
}

func TestAnalogBankAdd(t *testing.T) {
	adc := newMockADC()
	adc.values[1] = 2048
	SetADCDriver(adc)

	bank := NewAnalogBank()
	idx, err := bank.Add(1)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if idx != 0 || bank.Count() != 1 {
		t.Errorf("Expected index 0 and count 1, got %d/%d", idx, bank.Count())
	}
	if !adc.configured[1] {
		t.Error("Channel not configured on driver")
	}

	// Window is primed with the first reading
	if got := bank.Oversampled(0); got != 2048*Oversample {
		t.Errorf("Expected primed sum %d, got %d", 2048*Oversample, got)
	}

	if _, err := bank.Add(7); err == nil {
		t.Error("Expected error for channel rejected by driver")
	}
}

func TestAnalogBankOversampling(t *testing.T) {
	adc := newMockADC()
	SetADCDriver(adc)

	bank := NewAnalogBank()
	bank.Add(0)

	readings := []ADCValue{100, 200, 300, 400, 500}
	var sums []uint16
	for _, r := range readings {
		adc.values[0] = r
		bank.Sample()
		sums = append(sums, bank.Oversampled(0))
	}

	// Window of 4: the first reading ages out on the fifth sample
	want := []uint16{100, 300, 600, 1000, 1400}
	for i := range want {
		if sums[i] != want[i] {
			t.Errorf("Sample %d: expected sum %d, got %d", i, want[i], sums[i])
		}
	}
	if got := bank.Instant(0); got != 500 {
		t.Errorf("Expected instant 500, got %d", got)
	}
}

func TestAnalogBankClampAndFailure(t *testing.T) {
	adc := newMockADC()
	adc.values[2] = 1000
	SetADCDriver(adc)

	bank := NewAnalogBank()
	bank.Add(2)

	adc.values[2] = 9999
	bank.Sample()
	if got := bank.Instant(0); got != ADCMax {
		t.Errorf("Expected clamp to %d, got %d", ADCMax, got)
	}

	adc.fail[2] = true
	before := bank.Oversampled(0)
	bank.Sample()
	if got := bank.Oversampled(0); got != before {
		t.Errorf("Failed read changed the sum: %d -> %d", before, got)
	}
	if bank.inputs[0].InvalidCount != 1 {
		t.Errorf("Expected 1 invalid read, got %d", bank.inputs[0].InvalidCount)
	}
}

func TestAnalogBankFull(t *testing.T) {
	SetADCDriver(newMockADC())

	bank := NewAnalogBank()
	for i := 0; i < MaxAnalogInputs; i++ {
		if _, err := bank.Add(ADCChannelID(i % 4)); err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}
	if _, err := bank.Add(0); !errors.Is(err, ErrTooManyInputs) {
		t.Errorf("Expected ErrTooManyInputs, got %v", err)
	}
}
