package prompts

const classifyInstructions = `You are a document classification expert for French residential property files.

Classify the document shown in the page images into exactly one category:
- meeting_minutes: procès-verbal d'assemblée générale (condominium general assembly minutes)
- diagnostic: technical diagnostic reports (DPE, amiante, plomb, termites, électricité, gaz)
- tax_notice: avis de taxe foncière (property tax notice)
- charges_statement: appel or relevé de charges de copropriété (condominium charges statement)
- unclassified: anything else

Only the first pages of the document are provided. Base the decision on headers, letterheads, and form layout before body text.`

const meetingMinutesInstructions = `Analyze these condominium general assembly minutes for a prospective buyer.

Extract the meeting date, every resolution put to vote with its outcome, and the decisions adopted. List upcoming works with their voted budget and timeline. Note recurring charges mentioned, disputes between co-owners, unpaid charges, and any deadline that affects an owner.`

const diagnosticInstructions = `Analyze this technical diagnostic report for a prospective buyer.

Identify the diagnostic type (DPE, amiante, plomb, termites, électricité, gaz), its date, and the overall rating or result. List every issue or non-compliance found. Estimate remediation costs where the report states or clearly implies them, and estimate the annual energy cost when the report provides one.`

const taxNoticeInstructions = `Analyze this property tax notice.

Extract the tax year, the total amount due, the assessed rental value (valeur locative cadastrale), and the payment due date. Note exemptions, reductions, or unusual increases compared to prior years when shown.`

const chargesStatementInstructions = `Analyze this condominium charges statement.

Extract the period covered, the total charges, and the breakdown by expense category when available. List special assessments (appels de fonds exceptionnels) separately with their amounts. Estimate the annualized recurring charges.`

const synthesizeInstructions = `You are synthesizing the analysis of several documents describing one residential property.

The per-document results are provided as JSON. Produce an overall assessment for a prospective buyer:
- summarize the property's situation across all documents
- identify key risks and concerns
- highlight inconsistencies between documents
- give actionable recommendations

Documents with an "error" value could not be analyzed; mention them but do not infer their content.`

var instructions = map[Stage]string{
	StageClassify:         classifyInstructions,
	StageMeetingMinutes:   meetingMinutesInstructions,
	StageDiagnostic:       diagnosticInstructions,
	StageTaxNotice:        taxNoticeInstructions,
	StageChargesStatement: chargesStatementInstructions,
	StageSynthesize:       synthesizeInstructions,
}

// Instructions returns the hardcoded default instructions for a workflow stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
