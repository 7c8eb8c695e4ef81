package experiment

import (
	"fmt"
	"strings"
)

const multiFileNote = "For a larger project you may split the code into several files. " +
	"Give every extra file its own block and put its path, relative to the experiment directory, in the fence header:\n" +
	"```python:src/filename.py\n# code for filename.py\n```\n"

func programmerPrompt(content, plan string) string {
	return fmt.Sprintf(`You are a helpful AI-oriented programming expert. We are solving a machine learning task. Given this python script:
`+"```python"+`
%s
`+"```"+`
Edit the script according to the following instruction:
`+"```instruction"+`
%s
`+"```"+`
Provide the **full** code after the edit, making no other changes. The code must run as is, without further modification.

%s
Your response must start with `+"```python"+` and end with `+"```"+`. Do not add any other text or explanation.
`, content, plan, multiFileNote)
}

func debuggerPrompt(content, plan, last, observation string) string {
	return fmt.Sprintf(`You are a helpful AI-oriented programming expert. We are solving a machine learning task. Given this original python script:
`+"```python"+`
%s
`+"```"+`
The instruction for the modification is:
`+"```instruction"+`
%s
`+"```"+`
This is the current python code:
`+"```python"+`
%s
`+"```"+`
It has bugs. Here is the execution log:
`+"```log"+`
%s
`+"```"+`
Revise the script to fix these bugs. Provide the **full** code after the edit, making no other changes. The code must run as is, without further modification.

%s
Your response must start with `+"```python"+` and end with `+"```"+`. Do not add any other text or explanation.
`, content, plan, last, observation, multiFileNote)
}

func editPrompt(content, instruction string) string {
	return fmt.Sprintf(`Given this python script:
`+"```python"+`
%s
`+"```"+`
Edit the script by following the instruction:
%s
Provide only the **full** code after the edit, making no other changes. Start the python code with "`+"```python"+`". The code must run as is, without further modification.
`, content, instruction)
}

func segmentPrompt(segment, instruction string) string {
	return fmt.Sprintf(`Given this segment of a python script:
`+"```python"+`
%s
`+"```"+`
Edit this segment by following the instruction:
%s
Provide the full code of the segment after the edit, making no other changes. Start the python code with "`+"```python"+`".
`, segment, instruction)
}

const blockRules = `The description should be short and reference the critical lines relevant to what is being looked for. Only describe what is objectively confirmed by the file content. Do not include guessed numbers. If you cannot find the answer to some part of the request, say "In this segment, I cannot find ...".`

func blockHeader(b block) string {
	return fmt.Sprintf("Given this (partial) file from line %d character %d to line %d character %d:\n```\n%s\n```\n",
		b.startLine, b.startChar, b.endLine, b.endChar, b.text)
}

func understandBlockPrompt(b block, lookFor string) string {
	return blockHeader(b) +
		fmt.Sprintf("Here is a detailed description on what to look for and what should be returned: %s\n", lookFor) +
		blockRules + "\n"
}

func summaryBlockPrompt(b block, problem string) string {
	return blockHeader(b) +
		fmt.Sprintf("Based on this file, give a summary of the current progress on this research problem:\n```\n%s\n```\n", problem) +
		blockRules + "\n"
}

func segmentDescriptions(descriptions []string) string {
	parts := make([]string, len(descriptions))
	for i, d := range descriptions {
		parts[i] = fmt.Sprintf("Segment %d:\n\n%s", i+1, d)
	}
	return strings.Join(parts, "\n\n")
}

func understandMergePrompt(descriptions []string, lookFor string) string {
	return fmt.Sprintf("Given the relevant observations for each segment of a file, summarize them into a cohesive description of the entire file on what to look for and what should be returned: %s\n%s\n",
		lookFor, segmentDescriptions(descriptions))
}

func summaryMergePrompt(descriptions []string, problem string) string {
	return fmt.Sprintf("Given the relevant observations for each segment of a file, give a summary of the current progress on this research problem: %s\n%s\n",
		problem, segmentDescriptions(descriptions))
}

func reflectionPrompt(problem, researchLog, things string) string {
	return fmt.Sprintf(`We are trying to solve this research problem: %s
Your current research log:
`+"```"+`
%s
`+"```"+`
Reflect on this: %s
Give an answer in natural language paragraphs as truthfully as possible.
`, problem, researchLog, things)
}

func retrievalPrompt(problem, plan, researchLog string) string {
	return fmt.Sprintf(`We are trying to solve this research problem: %s
Your current Research Plan and Status
%s

Your current research log:
`+"```"+`
%s
`+"```"+`
Concisely summarize and list all relevant information from the research log that will be helpful for future steps.
`, problem, plan, researchLog)
}

func planPrompt(problem, experimentLog, cases string) string {
	return fmt.Sprintf(`You are a helpful AI expert assistant, responsible for decision making on the experiment plans. You have the following information: the research problem, the research log and a relevant case.
The research problem is:
`+"``` Research Problem:"+`
%s
`+"```"+`
The current research log is:
`+"``` Current Research Log:"+`
%s
`+"```"+`
Here is a past experience case written by a human expert for a relevant (but not the same) research problem:
`+"``` Case:"+`
%s
`+"```"+`
Follow these instructions:
- Introduce new techniques incrementally, since the programmer who follows your decision cannot handle too many instructions at one time.
- Decide only the next single step of the experiment. Do not put plans into [Decision] that need multiple experiment trials.
- Make sure [Decision] includes all the key points for the next experiment step.
- Point out the supporting experiment results and reasoning before drawing any conclusion.
Never violate these prohibitions:
- Never perform any visualization analysis, since you cannot view figures.
- Never change the way the dataset is split.
- Never introduce new features unless you understand them and their meaning.
- Never tune more than two hyper-parameters in one experiment step.
- Never introduce distributed training.

Reason over the case and the research problem, then respond exactly in this format:
[Reflection]: What is the progress of the experiment so far? What does the current research log reveal?
[Reasoning]: How can the current research problem benefit from the relevant case?
[Thought]: What is the plan for the next experiment trial?
[Check]: List all plans in [Thought] and check whether each needs multiple experiment trials or violates a prohibition.
[Decision]: Give a short, precise but detailed instruction summary of the experiment plan for the next single trial.
`, problem, experimentLog, cases)
}
