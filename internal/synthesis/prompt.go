// Package synthesis turns an ingested corpus into structured LLM
// results: paper analysis, code generation, and question answering.
package synthesis

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Character budgets per task. Oversized input is truncated with an
// ellipsis marker, never rejected.
const (
	// analysisBudget bounds a single uploaded document.
	analysisBudget = 12000
	// codegenBudget bounds a full corpus for code generation.
	codegenBudget = 500000
	// qaBudget bounds a corpus for question answering.
	qaBudget = 100000
)

// Sampling parameters shared by the synthesis tasks.
const (
	synthesisTemperature  = 0.3
	correctiveTemperature = 0.1
	synthesisMaxTokens    = 4096
)

const analysisPromptTemplate = `Analyze the following research paper text. Your task is to perform a comprehensive analysis and structure your output as a valid JSON object.

**Instructions:**
1.  **Summarize:** Create a concise summary of the paper's main contributions and findings.
2.  **Extract Sections:** Identify and extract the content for the 'abstract', 'methodology', and 'results' sections. If a section is not clearly present, provide the most relevant information you can find.
3.  **Generate Code:** Based on the extracted methodology, write a functional Python code snippet that implements the described algorithm or technique.
4.  **Analyze Tables:** If table data is provided below the document text, explain what each table shows and how it supports the paper's claims.

**Document Text:**
---
%s
---
%s
**Output Format:**
You MUST output a single, valid JSON object that conforms exactly to the following schema. Do not include any explanatory text, markdown formatting, or notes outside of the JSON structure.

**CRITICAL:** All string values within the JSON, especially in 'generatedCode', MUST be properly escaped.

**JSON Schema:**
{
  "summary": "A concise summary of the paper's main contributions, methodology, and key results.",
  "sections": {
    "abstract": "The full, extracted abstract of the paper.",
    "methodology": "A detailed explanation of the methodology, algorithm, or core techniques described.",
    "results": "A summary of the key findings, experimental results, or evaluation metrics."
  },
  "generatedCode": "A functional Python code implementation based on the 'methodology' section.",
  "tablesAnalysis": "An explanation of the tables found in the paper, or an empty string if none were provided."
}`

const codegenSystemPrompt = `You are an expert research engineer. Given the full text of a research paper and its references, you produce a complete, runnable Python implementation of the paper's core method.

You MUST reply with ONLY a single valid JSON object in exactly this format, with no markdown fences and no prose:

{
  "file_name": "implementation.py",
  "python_code": "the complete Python implementation",
  "requirements_txt": "the pip requirements, one per line",
  "tests_code": "a pytest test suite exercising the implementation"
}

All three of python_code, requirements_txt and tests_code are required. All string values MUST be properly escaped.`

const codegenUserTemplate = `Please analyze the following research paper content and generate the Python code implementation.

Paper Content:
%s

Please provide the implementation in the exact JSON format specified.`

const qaPromptTemplate = `You are given the text of a research paper and a list of questions about it. Answer each question using only the paper's content.

You MUST reply with ONLY a single valid JSON object in exactly this format, with no markdown fences and no prose:

{
  "paper_title": "the paper's title",
  "answers": ["answer to question 1", "answer to question 2"]
}

The answers array must contain exactly one entry per question, in order.

Paper Content:
%s

Questions:
%s`

const correctivePrompt = `Your previous reply was not valid JSON. Return ONLY the corrected JSON object, with no markdown fences, no commentary and no other text.

Previous reply:
%s`

// truncate cuts s to at most budget bytes, appending an ellipsis marker
// when content was lost. The cut backs up to a rune boundary so a
// multi-byte character is never split.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// buildAnalysisPrompt assembles the analysis prompt from document text
// and optional table markdown.
func buildAnalysisPrompt(docText, tablesMarkdown string) string {
	tables := ""
	if tablesMarkdown != "" {
		tables = "**Extracted Tables:**\n---\n" + tablesMarkdown + "\n---\n"
	}
	return fmt.Sprintf(analysisPromptTemplate, truncate(docText, analysisBudget), tables)
}

// buildCodegenPrompt assembles the code generation user prompt.
func buildCodegenPrompt(corpusText string) string {
	return fmt.Sprintf(codegenUserTemplate, truncate(corpusText, codegenBudget))
}

// buildQAPrompt assembles the Q&A prompt.
func buildQAPrompt(corpusText string, questions []string) string {
	var q strings.Builder
	for i, question := range questions {
		fmt.Fprintf(&q, "%d. %s\n", i+1, question)
	}
	return fmt.Sprintf(qaPromptTemplate, truncate(corpusText, qaBudget), q.String())
}
