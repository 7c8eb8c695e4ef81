package actions

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Param is one declared argument of an action.
type Param struct {
	Name        string
	Description string
	Optional    bool
}

// Descriptor is the contract of one action.
type Descriptor struct {
	Kind        Kind
	Name        string
	Description string
	Params      []Param // Ordered as shown to callers
	Returns     string
	Primitive   bool

	// PathParams are checked for workspace containment; WriteParams are
	// additionally checked against the read-only set.
	PathParams  []string
	WriteParams []string
}

// ParamNames returns the declared parameter names in order.
func (d Descriptor) ParamNames() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}

// HasParam reports whether name is a declared parameter.
func (d Descriptor) HasParam(name string) bool {
	for _, p := range d.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Usage renders the descriptor the way it is shown to a driving agent.
func (d Descriptor) Usage() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n  %s\n  Usage:\n    Action: %s\n    Action Input: {\n", d.Name, d.Description, d.Name)
	for i, p := range d.Params {
		sep := ","
		if i == len(d.Params)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "        %q: [%s]%s\n", p.Name, p.Description, sep)
	}
	fmt.Fprintf(&sb, "    }\n    Observation: [%s]\n", d.Returns)
	return sb.String()
}

// Declaration returns the Gemini function declaration for this action.
func (d Descriptor) Declaration() *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(d.Params))
	var required []string
	for _, p := range d.Params {
		props[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
		}
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        declarationName(d.Name),
		Description: d.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		},
	}
}

// declarationName turns "Edit Script (AI)" into "edit_script_ai"; function
// names may only hold letters, digits and underscores.
func declarationName(name string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && sb.Len() > 0 {
			sb.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}

// Describe returns the descriptor for k.
func Describe(k Kind) Descriptor {
	if !k.Valid() {
		panic(fmt.Sprintf("actions: unknown kind %d", int(k)))
	}
	return catalog[k]
}

// Catalog returns every descriptor in Kind order.
func Catalog() []Descriptor {
	out := make([]Descriptor, kindCount)
	copy(out, catalog[:])
	return out
}

const (
	fileParamDesc   = "a valid file name with relative path to current directory if needed"
	scriptParamDesc = "a valid python script name with relative path to current directory if needed"
	lineParamDesc   = "a valid line number"
)

var catalog = [kindCount]Descriptor{
	ListFiles: {
		Name:        "List Files",
		Description: "Use this to navigate the file system.",
		Params: []Param{
			{Name: "dir_path", Description: `a valid relative path to a directory, such as "." or "folder1/folder2"`, Optional: true},
		},
		Returns:    "The observation will be a list of files and folders in dir_path or current directory is dir_path is empty, or an error message if dir_path is invalid.",
		Primitive:  true,
		PathParams: []string{"dir_path"},
	},
	ReadFile: {
		Name:        "Read File",
		Description: "Use this to read an existing file.",
		Params:      []Param{{Name: "file_name", Description: fileParamDesc}},
		Returns:     "The observation will be the contents of the file read.",
		Primitive:   true,
		PathParams:  []string{"file_name"},
	},
	WriteFile: {
		Name:        "Write File",
		Description: "Use this to write a file. If the file already exists, it will be overwritten.",
		Params: []Param{
			{Name: "file_name", Description: fileParamDesc},
			{Name: "content", Description: "the content to be written to the file"},
		},
		Returns:     "A success message if the file is written successfully, or an error message if the file cannot be written.",
		Primitive:   true,
		PathParams:  []string{"file_name"},
		WriteParams: []string{"file_name"},
	},
	AppendFile: {
		Name:        "Append File",
		Description: "Use this to append content to the end of a file.",
		Params: []Param{
			{Name: "file_name", Description: fileParamDesc},
			{Name: "content", Description: "the content to be appended to the file"},
		},
		Returns:     "A success message if the file is appended successfully, or an error message if the file cannot be appended.",
		Primitive:   true,
		PathParams:  []string{"file_name"},
		WriteParams: []string{"file_name"},
	},
	CopyFile: {
		Name:        "Copy File",
		Description: "Use this to copy a file to a new location with a new name.",
		Params: []Param{
			{Name: "source", Description: fileParamDesc},
			{Name: "destination", Description: fileParamDesc},
		},
		Returns:     "A success message if the file is copied successfully, or an error message if the file cannot be copied.",
		Primitive:   true,
		PathParams:  []string{"source", "destination"},
		WriteParams: []string{"destination"},
	},
	UndoEditScript: {
		Name:        "Undo Edit Script",
		Description: "Use this to undo the last edit of the python script.",
		Params:      []Param{{Name: "script_name", Description: scriptParamDesc}},
		Returns:     "The observation will be the content of the script before the last edit. If the script does not exist, the observation will be an error message.",
		Primitive:   true,
		PathParams:  []string{"script_name"},
	},
	ExecuteScript: {
		Name:        "Execute Script",
		Description: "Use this to execute the python script. The script must already exist.",
		Params:      []Param{{Name: "script_name", Description: scriptParamDesc}},
		Returns:     "The observation will be output of the script or errors.",
		Primitive:   true,
		PathParams:  []string{"script_name"},
	},
	RequestHelp: {
		Name:        "Request Help",
		Description: "Use this to request help from human. Use this only when the provided tools and files are not enough for accomplishing necessary steps, such as requesting API reference or installing a library. So you should check through the provided tools and files first.",
		Params:      []Param{{Name: "request", Description: "a detailed description on what to do"}},
		Returns:     "The observation will be the response from human.",
		Primitive:   true,
	},
	FinalAnswer: {
		Name:        "Final Answer",
		Description: "Use this to provide the final answer to the current task. This should be used only after deriving empirical results.",
		Params:      []Param{{Name: "final_answer", Description: "a detailed description on the final answer"}},
		Returns:     "The observation will be empty.",
		Primitive:   true,
	},

	UnderstandFile: {
		Name:        "Understand File",
		Description: "Use this to read the whole file and understand certain aspects. You should provide detailed description on what to look for and what should be returned. To get a better understanding of the file, you can use Inspect Script Lines action to inspect specific part of the file.",
		Params: []Param{
			{Name: "file_name", Description: fileParamDesc},
			{Name: "things_to_look_for", Description: "a detailed description on what to look for and what should returned"},
		},
		Returns:    "The observation will be a description of relevant content and lines in the file. If the file does not exist, the observation will be an error message.",
		PathParams: []string{"file_name"},
	},
	SummaryProgress: {
		Name:        "Summary Progress",
		Description: "Use this to read a whole progress log and summarize what has been tried, what worked and what remains.",
		Params:      []Param{{Name: "file_name", Description: fileParamDesc}},
		Returns:     "The observation will be a summary of the progress recorded in the file. If the file does not exist, the observation will be an error message.",
		PathParams:  []string{"file_name"},
	},
	AppendResearchLog: {
		Name:        "Append Summary to Research Log",
		Description: "Append to the summary of previous step to research log",
		Params:      []Param{{Name: "content", Description: "a string within 500 character limit"}},
		Returns:     "The observation will be a success message if the content is appended to the research log. Otherwise, the observation will be an error message.",
	},
	InspectScriptLines: {
		Name:        "Inspect Script Lines",
		Description: "Use this to inspect specific part of a python script precisely, or the full content of a short script. The number of lines to display is limited to 100 lines. This is especially helpful when debugging.",
		Params: []Param{
			{Name: "script_name", Description: scriptParamDesc},
			{Name: "start_line_number", Description: lineParamDesc},
			{Name: "end_line_number", Description: lineParamDesc},
		},
		Returns:    "The observation will be the content of the script between start_line_number and end_line_number . If the script does not exist, the observation will be an error message.",
		PathParams: []string{"script_name"},
	},
	EditScript: {
		Name:        "Edit Script (AI)",
		Description: "Use this to do a relatively large but cohesive edit over a python script. Instead of editing the script directly, you should describe the edit instruction so that another AI can help you do this.",
		Params: []Param{
			{Name: "script_name", Description: scriptParamDesc + ". An empty script will be created if it does not exist."},
			{Name: "edit_instruction", Description: "a detailed step by step description on how to edit it."},
			{Name: "save_name", Description: fileParamDesc},
		},
		Returns:     "The observation will be the edited content of the script. If the script does not exist, the observation will be an error message. You should always double check whether the edit is correct. If it is far from correct, you can use the Undo Edit Script action to undo the edit.",
		PathParams:  []string{"script_name", "save_name"},
		WriteParams: []string{"save_name"},
	},
	EditScriptSegment: {
		Name:        "Edit Script Segment (AI)",
		Description: "Use this to do a relatively large but cohesive edit over a python script over a segment. Instead of editing the script directly, you should describe the edit instruction so that another AI can help you do this.",
		Params: []Param{
			{Name: "script_name", Description: scriptParamDesc + ". An empty script will be created if it does not exist."},
			{Name: "start_line_number", Description: lineParamDesc},
			{Name: "end_line_number", Description: lineParamDesc},
			{Name: "edit_instruction", Description: "a detailed step by step description on how to edit it."},
			{Name: "save_name", Description: fileParamDesc},
		},
		Returns:     "The observation will be the edited content of the script. If the script does not exist, the observation will be an error message. You should always double check whether the edit is correct. If it is far from correct, you can use the Undo Edit Script action to undo the edit.",
		PathParams:  []string{"script_name", "save_name"},
		WriteParams: []string{"save_name"},
	},
	ExecuteExperiment: {
		Name:        "Execute the Experiment Plan",
		Description: "Use this to perform an experiment of a given plan and derive the empirical performance. Specifically, another AI agent will help you edit the script based on your instruction, and then, execute the script and return the execution logs.",
		Params: []Param{
			{Name: "script_name", Description: scriptParamDesc + ". An empty script will be created if it does not exist."},
			{Name: "plan", Description: "a detailed step by step description of the plan for the experiment."},
			{Name: "save_name", Description: fileParamDesc},
		},
		Returns:     "The observation will be the execution log of the edited script, if it successfully completes your plan within at most five trials.",
		PathParams:  []string{"script_name", "save_name"},
		WriteParams: []string{"save_name"},
	},
	Reflection: {
		Name:        "Reflection",
		Description: "Use this to look over all the past steps and reflect. You should provide detailed description on what to reflect on and what should be returned.",
		Params:      []Param{{Name: "things_to_reflect_on", Description: "a detailed description on what to reflect on and what should be returned"}},
		Returns:     "The observation will be a the reflection.",
	},
	RetrieveResearchLog: {
		Name:        "Retrieval from Research Log",
		Description: "Use this to retrieve relevant information from the research log. You should provide detailed description on what to look for and what should be returned.",
		Params:      []Param{{Name: "current_plan", Description: "a detailed description of the current research plan and status"}},
		Returns:     "The observation will be a description of relevant content and lines in the research log.",
	},
	PlanExperiment: {
		Name:        "Develop An Experiment Plan via CBR",
		Description: "Use this to draft an experiment plan for the research problem, guided by similar past cases when a case base is available.",
		Params:      []Param{{Name: "experiment_log", Description: "the experiment log so far, or an empty string at the start of the research"}},
		Returns:     "The observation will be the experiment plan decided for the next step.",
	},
}

var byName map[string]Kind

func init() {
	byName = make(map[string]Kind, kindCount)
	for i := range catalog {
		k := Kind(i)
		d := &catalog[i]
		if d.Name == "" {
			panic(fmt.Sprintf("actions: kind %d has no catalog entry", i))
		}
		if _, dup := byName[d.Name]; dup {
			panic("actions: duplicate action name " + d.Name)
		}
		d.Kind = k
		for _, p := range append(append([]string{}, d.PathParams...), d.WriteParams...) {
			if !d.HasParam(p) {
				panic(fmt.Sprintf("actions: %s guards undeclared parameter %q", d.Name, p))
			}
		}
		byName[d.Name] = k
	}
}
