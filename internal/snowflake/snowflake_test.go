package snowflake

import (
	"testing"
	"time"
)

func TestSetupSnowflake(t *testing.T) {
	err := Setup(3)
	if err != nil {
		t.Error(err)
	}
}

func TestSetupSnowflakeTwice(t *testing.T) {
	Setup(3)
	err := Setup(4)
	if err == nil {
		t.Error("Expected error on second Setup, got nil")
	}
}

func TestGenerateSnowflake(t *testing.T) {
	Setup(3)
	_, err := Generate()
	if err != nil {
		t.Error(err)
	}
}

func TestExtractRoundTrip(t *testing.T) {
	Setup(3)
	before := time.Now().UnixMilli()

	id, err := Generate()
	if err != nil {
		t.Fatal(err)
	}

	extracted := Extract(id)
	if extracted.WorkerID != 3 {
		t.Errorf("Extracted worker ID %d, want 3", extracted.WorkerID)
	}
	if extracted.Timestamp < before {
		t.Errorf("Extracted timestamp %d is before generation time %d", extracted.Timestamp, before)
	}
}

func TestExtractTimeMatchesGeneration(t *testing.T) {
	Setup(3)
	before := time.Now().Truncate(time.Millisecond)

	id, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	after := time.Now()

	embedded := ExtractTime(id)
	if embedded.Before(before) || embedded.After(after) {
		t.Errorf("Embedded time %v outside generation window [%v, %v]", embedded, before, after)
	}
}

func TestSnowflakeIncrementOverflow(t *testing.T) {
	Setup(3)
	for i := 0; i < 100000; i++ {
		_, err := Generate()
		if err != nil {
			return
		}
	}
	t.Error("Expected increment overflow, but there wasn't")
}
