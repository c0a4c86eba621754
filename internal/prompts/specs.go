package prompts

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "category": "<meeting_minutes|diagnostic|tax_notice|charges_statement|unclassified>",
  "confidence": 0.0,
  "rationale": "<explanation>"
}

Field constraints:
- category: exactly one of the listed values.
- confidence: number between 0 and 1.
- rationale: one or two sentences naming the evidence used.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing`

const meetingMinutesSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<brief summary of the meeting>",
  "key_insights": ["<insight>"],
  "estimated_annual_cost": 0,
  "one_time_costs": [{"description": "<work>", "amount": 0}],
  "meeting_date": "<YYYY-MM-DD>",
  "decisions": ["<decision>"],
  "vote_outcomes": ["<resolution: outcome>"],
  "upcoming_works": [{"description": "<work>", "cost": 0, "timeline": "<when>"}]
}` + costConstraints

const diagnosticSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<brief summary>",
  "key_insights": ["<insight>"],
  "diagnostic_type": "<DPE|amiante|plomb|termites|electricite|gaz>",
  "diagnostic_date": "<YYYY-MM-DD>",
  "rating": "<rating or result>",
  "issues_found": ["<issue>"],
  "estimated_annual_cost": 0,
  "one_time_costs": [{"description": "<remediation>", "amount": 0}]
}` + costConstraints

const taxNoticeSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<brief summary>",
  "key_insights": ["<insight>"],
  "year": 2024,
  "total_amount": 0,
  "assessed_value": 0,
  "due_date": "<YYYY-MM-DD>",
  "estimated_annual_cost": 0
}` + costConstraints

const chargesStatementSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<brief summary>",
  "key_insights": ["<insight>"],
  "period": "<period covered>",
  "total_charges": 0,
  "breakdown": {"<category>": 0},
  "special_assessments": [{"description": "<assessment>", "amount": 0}],
  "estimated_annual_cost": 0
}` + costConstraints

const costConstraints = `

Field constraints:
- summary is required; every other field may be null when absent from the document.
- Amounts are numbers in euros, without currency symbols or thousands separators.
- estimated_annual_cost is the recurring yearly cost implied by the document.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Report only what the document states; do not invent amounts`

const synthesizeSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<executive summary of all documents>",
  "risk_level": "<low|medium|high>",
  "key_findings": ["<finding>"],
  "recommendations": ["<recommendation>"],
  "documents_by_category": {
    "<category>": {"count": 0, "summary": "<short summary>"}
  }
}

Field constraints:
- risk_level: exactly one of low, medium, high.
- key_findings and recommendations are ordered by importance.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Cost totals are computed separately; do not report them`

var specs = map[Stage]string{
	StageClassify:         classifySpec,
	StageMeetingMinutes:   meetingMinutesSpec,
	StageDiagnostic:       diagnosticSpec,
	StageTaxNotice:        taxNoticeSpec,
	StageChargesStatement: chargesStatementSpec,
	StageSynthesize:       synthesizeSpec,
}

// Spec returns the hardcoded specification for a workflow stage.
// Specifications define the expected output format and behavioral constraints.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
