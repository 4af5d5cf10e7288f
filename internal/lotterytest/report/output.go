package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/util"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

// Formatter serialises a report. tolerance is the largest absolute deviation, in percentage
// points, for which a worker counts as passing.
type Formatter func(report *RunReport, tolerance int) ([]byte, error)

// FormatterFor returns the Formatter for one of the configuration's report formats.
func FormatterFor(format string) (Formatter, error) {
	switch format {
	case configuration.YamlFormat, "":
		return YamlFormatter, nil
	case configuration.JsonFormat:
		return JsonFormatter, nil
	case configuration.JunitFormat:
		return JunitFormatter, nil
	default:
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "report.format",
			Value:   format,
			Message: "supported formats are yaml, json and junit",
		})
	}
}

func YamlFormatter(report *RunReport, _ int) ([]byte, error) {
	out, err := yaml.Marshal(report)
	return out, errors.WithStack(err)
}

func JsonFormatter(report *RunReport, _ int) ([]byte, error) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return append(out, '\n'), nil
}

// JunitFormatter produces one test suite for the run with a test case per worker. A worker whose
// share deviates from its expected share by more than tolerance is a failure, as is a run in
// which no worker was scheduled at all.
func JunitFormatter(report *RunReport, tolerance int) ([]byte, error) {
	elapsed, err := time.ParseDuration(report.Elapsed)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	suite := junit.Testsuite{
		Name:      "lotterytest",
		Timestamp: report.StartedAt.Format("2006-01-02T15:04:05"),
		Time:      fmt.Sprintf("%.3f", elapsed.Seconds()),
	}
	suite.AddProperty("runId", report.RunId)
	suite.AddProperty("backend", report.Backend)
	suite.AddProperty("tickets", report.Tickets)
	suite.AddProperty("accuracy", fmt.Sprintf("%d", report.Accuracy))
	suite.AddProperty("rating", report.Rating)

	for _, w := range report.Workers {
		tc := junit.Testcase{
			Name:      w.Name,
			Classname: "lotterytest." + report.Backend,
		}
		switch {
		case report.Degenerate:
			tc.Failure = &junit.Result{
				Message: "no ticks received",
				Type:    "degenerate",
				Data:    "no worker was scheduled during the run",
			}
		case util.Abs(w.Deviation) > tolerance:
			tc.Failure = &junit.Result{
				Message: fmt.Sprintf("deviation %+d%% exceeds tolerance of %d%%", w.Deviation, tolerance),
				Type:    "deviation",
				Data: fmt.Sprintf("tickets=%d ticks=%d expected=%d%% actual=%d%%",
					w.Tickets, w.Ticks, w.ExpectedPercent, w.ActualPercent),
			}
		}
		suite.AddTestcase(tc)
	}

	suites := junit.Testsuites{}
	suites.AddSuite(suite)
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := enc.Encode(suites); err != nil {
		return nil, errors.WithStack(err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// WriteFile formats report and writes it to path.
func WriteFile(path string, format string, tolerance int, report *RunReport) error {
	formatter, err := FormatterFor(format)
	if err != nil {
		return err
	}
	out, err := formatter(report, tolerance)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "writing report to %s", path)
	}
	return nil
}
