package evaluation

import "fmt"

func faithfulnessPrompt(query, response, evidence string) string {
	return fmt.Sprintf(`You are an evaluation judge assessing FAITHFULNESS.

Faithfulness measures whether the response contains ONLY information supported by the provided evidence.
Any claim not backed by the evidence is a hallucination.

Rate on a scale of 0.0 to 1.0:
  1.0 = Every claim is directly supported by evidence
  0.5 = Some claims are supported, some are not
  0.0 = Most claims are fabricated

QUERY: %s

RESPONSE:
%s

EVIDENCE:
%s

Evaluate faithfulness and return:
- metric_name: "faithfulness"
- score: 0.0-1.0
- reasoning: Explain your assessment
- issues: List any hallucinated claims`, query, response, evidence)
}

func relevancePrompt(query, response string) string {
	return fmt.Sprintf(`You are an evaluation judge assessing RELEVANCE.

Relevance measures whether the response actually answers what the user asked.
Off-topic information or tangential answers reduce relevance.

Rate on a scale of 0.0 to 1.0:
  1.0 = Directly and fully addresses the user's question
  0.5 = Partially relevant, some off-topic content
  0.0 = Does not address the user's question at all

QUERY: %s

RESPONSE:
%s

Evaluate relevance and return:
- metric_name: "relevance"
- score: 0.0-1.0
- reasoning: Explain your assessment
- issues: List any irrelevant sections`, query, response)
}

func completenessPrompt(query, response string) string {
	return fmt.Sprintf(`You are an evaluation judge assessing COMPLETENESS.

Completeness measures whether ALL aspects of the user's question are addressed.
Break the query into sub-questions and check each is answered.

Rate on a scale of 0.0 to 1.0:
  1.0 = Every aspect of the question is thoroughly addressed
  0.5 = Some aspects addressed, others missing
  0.0 = The response barely covers the question

QUERY: %s

RESPONSE:
%s

Evaluate completeness and return:
- metric_name: "completeness"
- score: 0.0-1.0
- reasoning: Explain your assessment
- issues: List any missing aspects`, query, response)
}

func citationQualityPrompt(query, response string, numCitations int) string {
	return fmt.Sprintf(`You are an evaluation judge assessing CITATION QUALITY.

Citation quality measures whether:
1. Claims are properly attributed to specific sources
2. Citations are relevant to the claims they support
3. There are no orphaned claims (important claims without citations)

Rate on a scale of 0.0 to 1.0:
  1.0 = Every important claim has a relevant, specific citation
  0.5 = Some citations present but incomplete coverage
  0.0 = No citations or all citations are irrelevant

QUERY: %s

RESPONSE:
%s

NUMBER OF CITATIONS: %d

Evaluate citation quality and return:
- metric_name: "citation_quality"
- score: 0.0-1.0
- reasoning: Explain your assessment
- issues: List any citation problems`, query, response, numCitations)
}
