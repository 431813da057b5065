package console

// Code is the two-character prefix tagging a console line. Legacy lines
// carry CodeNone.
type Code string

// Prefix codes written by the agent in front of every console line.
const (
	CodeNone            Code = ""
	CodeInfo            Code = "##"
	CodePrep            Code = "pr"
	CodePrepErr         Code = "pe"
	CodePublish         Code = "ar"
	CodePublishErr      Code = "ae"
	CodeTaskStart       Code = "!!"
	CodeOut             Code = "&1"
	CodeErr             Code = "&2"
	CodePass            Code = "?0"
	CodeFail            Code = "?1"
	CodeCancelled       Code = "^C"
	CodeCancelTaskStart Code = "!x"
	CodeCancelTaskPass  Code = "x0"
	CodeCancelTaskFail  Code = "x1"
	CodeJobPass         Code = "j0"
	CodeJobFail         Code = "j1"
	CodeCompleted       Code = "ex"
)

// SectionType names the phase a section belongs to.
type SectionType string

// Section types. An empty SectionType marks an unassigned section.
const (
	TypeInfo    SectionType = "info"
	TypePrep    SectionType = "prep"
	TypePublish SectionType = "publish"
	TypeTask    SectionType = "task"
	TypeCancel  SectionType = "cancel"
	TypeResult  SectionType = "result"
	TypeEnd     SectionType = "end"
)

// Status is the explicit outcome recorded when a section closes on an end
// boundary.
type Status string

// Section outcomes.
const (
	StatusNone      Status = ""
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var families = map[SectionType]map[Code]bool{
	TypePrep:    {CodePrep: true, CodePrepErr: true},
	TypePublish: {CodePublish: true, CodePublishErr: true},
	TypeTask: {
		CodeTaskStart: true, CodeOut: true, CodeErr: true,
		CodePass: true, CodeFail: true, CodeCancelled: true,
	},
	TypeCancel: {
		CodeCancelTaskStart: true, CodeOut: true, CodeErr: true,
		CodeCancelTaskPass: true, CodeCancelTaskFail: true,
	},
	TypeResult: {CodeJobPass: true, CodeJobFail: true},
	TypeEnd:    {CodeCompleted: true},
}

// TypeOf returns the section type a line with code c opens. Unknown codes
// and legacy lines open info sections.
func TypeOf(c Code) SectionType {
	switch c {
	case CodePrep, CodePrepErr:
		return TypePrep
	case CodePublish, CodePublishErr:
		return TypePublish
	case CodeTaskStart, CodeOut, CodeErr, CodePass, CodeFail, CodeCancelled:
		return TypeTask
	case CodeCancelTaskStart, CodeCancelTaskPass, CodeCancelTaskFail:
		return TypeCancel
	case CodeJobPass, CodeJobFail:
		return TypeResult
	case CodeCompleted:
		return TypeEnd
	default:
		return TypeInfo
	}
}

// Accepts reports whether a line with code c continues a section of type t.
func (t SectionType) Accepts(c Code) bool {
	if t == TypeInfo {
		return TypeOf(c) == TypeInfo
	}
	return families[t][c]
}

// IsEndBoundary reports whether c always terminates the section it lands in.
func IsEndBoundary(c Code) bool {
	switch c {
	case CodePass, CodeFail, CodeCancelled, CodeJobPass, CodeJobFail, CodeCancelTaskPass, CodeCancelTaskFail:
		return true
	}
	return false
}

// IsSectionStart reports whether c begins a new task-like section even when
// the open section is of the same family.
func IsSectionStart(c Code) bool {
	return c == CodeTaskStart || c == CodeCancelTaskStart
}

// IsErrorCode reports whether a line with code c marks its section as failed.
func IsErrorCode(c Code) bool {
	switch c {
	case CodeFail, CodeCancelled, CodeCancelTaskFail, CodeJobFail, CodePublishErr:
		return true
	}
	return false
}

// StatusOf returns the outcome an end boundary code records.
func StatusOf(c Code) Status {
	switch c {
	case CodePass, CodeJobPass, CodeCancelTaskPass:
		return StatusPassed
	case CodeFail, CodeJobFail, CodeCancelTaskFail:
		return StatusFailed
	case CodeCancelled:
		return StatusCancelled
	}
	return StatusNone
}

var codeNames = map[Code]string{
	CodeInfo:            "info",
	CodePrep:            "prep",
	CodePrepErr:         "prep-err",
	CodePublish:         "publish",
	CodePublishErr:      "publish-err",
	CodeTaskStart:       "task-start",
	CodeOut:             "out",
	CodeErr:             "err",
	CodePass:            "pass",
	CodeFail:            "fail",
	CodeCancelled:       "cancelled",
	CodeCancelTaskStart: "cancel-task-start",
	CodeCancelTaskPass:  "cancel-task-pass",
	CodeCancelTaskFail:  "cancel-task-fail",
	CodeJobPass:         "job-pass",
	CodeJobFail:         "job-fail",
	CodeCompleted:       "completed",
}

// Name returns a stable CSS-friendly name for c ("plain" for legacy or
// unknown prefixes).
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "plain"
}
