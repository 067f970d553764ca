package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/streambinder/hymnal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func report() entity.Report {
	report := entity.Report{Total: 3}
	report.Done("/slides/1. 28장.pptx")
	report.Fail("29", &entity.ResolutionError{URL: "u", Err: errors.New("boom")})
	report.Done("/slides/2. 30장.pptx")
	return report
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	require.NoError(t, printReport(&out, report(), false))
	assert.Equal(t, "✓ 1. 28장.pptx\n✓ 2. 30장.pptx\n✗ 29 (resolution failed)\n2/3 downloaded\n", out.String())
}

func TestPrintReportYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReport(&out, report(), true))

	var decoded entity.Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Success)
	require.Len(t, decoded.Failed, 1)
	assert.Equal(t, "resolution failed", decoded.Failed[0].Reason)
	assert.Contains(t, out.String(), "success: 2")
}
