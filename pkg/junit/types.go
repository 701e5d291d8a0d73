package junit

import (
	"encoding/xml"
)

// TestSuite is the root of a JUnit XML report document.
type TestSuite struct {
	XMLName xml.Name `xml:"testsuite"`

	// Name identifies the suite, Package the producing tool.
	Name    string `xml:"name,attr"`
	Package string `xml:"package,attr"`

	TestCases []*TestCase `xml:"testcase"`
}

// TestCase is one entry of the report, either the synthetic summary entry or
// one entry per sample label or pass/fail criterion.
type TestCase struct {
	XMLName xml.Name `xml:"testcase"`

	ClassName string `xml:"classname,attr"`
	Name      string `xml:"name,attr"`

	// SkipMessage marks the entry as not executed, used for the summary
	// entry which carries statistics rather than a verdict.
	SkipMessage *SkipMessage `xml:"skipped,omitempty"`

	SystemOut string `xml:"system-out,omitempty"`

	Errors []*ErrorOutput `xml:"error"`
}

// SkipMessage holds the reason a test case was not executed.
type SkipMessage struct {
	XMLName xml.Name `xml:"skipped"`

	Message string `xml:"message,attr,omitempty"`
}

// ErrorOutput is one failure marker attached to a test case.
type ErrorOutput struct {
	XMLName xml.Name `xml:"error"`

	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Output  string `xml:",chardata"`
}
