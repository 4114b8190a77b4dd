// internal/extraction/prompts.go
package extraction

// Prompt templates for the extraction stages. Each stage has exactly one
// current contract; phrasing changes here must keep the JSON shapes stable
// because the decoders pin them.

const characterizationSystemPrompt = `You are an expert in analyzing scientific research papers, especially ML/AI papers.`

const characterizationPrompt = `Analyze this research paper and provide:

1. Paper Type: Classify as one of:
   - new_architecture (introduces a new model/architecture)
   - survey (reviews existing literature)
   - application (applies existing methods to a new domain)
   - theoretical (focuses on theoretical aspects without implementation)
   - unknown (if unclear)

2. Key Sections: Identify and map the paper's sections to this vocabulary:
   abstract, introduction, related_work, background, methods, architecture,
   data, experiments, results, evaluation, discussion, conclusion, references

For each section you identify, provide the standardized name, the original
section title as it appears in the paper, and a brief 1-2 sentence summary.

Return ONLY a JSON object with this exact format:
{
  "paper_type": "TYPE",
  "sections": {
    "section_name": {
      "title": "Original Title",
      "summary": "Brief summary"
    }
  }
}

Paper text:
`

const componentSystemPrompt = `You are an expert in machine learning research. You extract the structural building blocks of ML papers with high precision.`

const componentPrimaryPrompt = `Extract the key components of the machine learning pipeline described in this %s paper.

Organize components under these fixed pipeline stages: Data, Architecture, Training, Evaluation, Results.

Component types: dataset, preprocessing, model, training, evaluation, results, layer, module, hyperparameter, algorithm, metric, other.

Return ONLY a JSON object with this structure:
{
  "paper_summary": "one paragraph summary",
  "pipeline_stages": [
    {
      "stage_name": "Data",
      "components": [
        {
          "id": "temp-1",
          "category": "data",
          "type": "dataset",
          "name": "component name",
          "description": "brief description of its role",
          "details": {"param": "value"},
          "is_novel": false,
          "children": []
        }
      ]
    }
  ]
}

Nested sub-components go in "children" with the same shape.

Paper text:
`

const componentFallbackPrompt = `Extract the main components from this research paper: the main model or architecture, the datasets used, and the key metrics reported.

Return ONLY a JSON array with this structure:
[
  {
    "name": "component name",
    "type": "model",
    "description": "brief description",
    "details": {},
    "is_novel": false
  }
]

Paper text:
`

const relationshipSystemPrompt = `You are an expert in machine learning research. You identify how the components of an ML pipeline relate to each other.`

const relationshipPrompt = `Based on the extracted components below, identify the relationships between them.

Paper Type: %s

Extracted Components:
%s

Relationship types:
1. "flow" - data or processing flow from one component to another
2. "uses" - one component uses or depends on another
3. "contains" - hierarchical relationship
4. "evaluates" - evaluation relationship
5. "compares" - comparison relationship
6. "improves" - improvement relationship
7. "part_of" - component is part of another

Return ONLY a JSON array with this structure:
[
  {
    "source_id": "component_id_1",
    "target_id": "component_id_2",
    "type": "relationship_type",
    "description": "brief description"
  }
]
`

const diagramSystemPrompt = `You are an expert at visualizing machine learning pipelines as Mermaid diagrams.`

const diagramPrompt = `Create a Mermaid flowchart describing the ML pipeline of this research paper.

Requirements:
- Start with "flowchart TD"
- One node per pipeline component, edges showing data/processing flow
- Return ONLY the diagram source inside a fenced code block

Paper text:
`
