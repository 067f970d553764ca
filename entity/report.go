package entity

import "fmt"

// Failure names an item that did not make it and why
type Failure struct {
	Query  string `yaml:"query"`
	Reason string `yaml:"reason"`
}

func (failure Failure) String() string {
	return fmt.Sprintf("%s (%s)", failure.Query, failure.Reason)
}

// Report summarizes a batch or queue run
type Report struct {
	Total     int       `yaml:"total"`
	Success   int       `yaml:"success"`
	Failed    []Failure `yaml:"failed"`
	Files     []string  `yaml:"files"`
	Cancelled bool      `yaml:"cancelled"`
}

func (report *Report) Fail(query string, err error) {
	report.Failed = append(report.Failed, Failure{query, Reason(err)})
}

func (report *Report) Done(file string) {
	report.Success++
	report.Files = append(report.Files, file)
}
