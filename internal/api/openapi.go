package api

import (
	"net/http"

	"github.com/JaimeStill/appart/internal/config"
	"github.com/JaimeStill/appart/pkg/openapi"
)

var (
	badRequest    = openapi.ResponseRef("BadRequest")
	notFound      = openapi.ResponseRef("NotFound")
	conflict      = openapi.ResponseRef("Conflict")
	unprocessable = openapi.ResponseRef("Unprocessable")
)

// buildSpec describes the API module's routes as an OpenAPI document.
func buildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(schemas())

	id := openapi.PathParam("id", "Resource ID")
	stage := &openapi.Parameter{
		Name:     "stage",
		In:       "path",
		Required: true,
		Schema: &openapi.Schema{
			Type: "string",
			Enum: []any{"classify", "meeting_minutes", "diagnostic", "tax_notice", "charges_statement", "synthesize"},
		},
	}
	listParams := []*openapi.Parameter{
		openapi.QueryParam("page", "integer", "Page number", false),
		openapi.QueryParam("page_size", "integer", "Results per page", false),
		openapi.QueryParam("search", "string", "Search query", false),
		openapi.QueryParam("sort", "string", "Sort fields", false),
		openapi.QueryParam("status", "string", "Status filter", false),
	}

	spec.Paths["/documents"] = &openapi.PathItem{
		Get: op("documents", "List documents", listParams, nil,
			ok("Document page", "DocumentPage")),
		Post: op("documents", "Upload a document", nil, &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"multipart/form-data": {Schema: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"file":     {Type: "string", Format: "binary"},
						"batch_id": {Type: "string", Format: "uuid"},
					},
					Required: []string{"file"},
				}},
			},
		}, created("Document", "Document"), withError(http.StatusBadRequest, badRequest),
			withError(http.StatusRequestEntityTooLarge, badRequest), withError(http.StatusUnsupportedMediaType, badRequest)),
	}
	spec.Paths["/documents/search"] = &openapi.PathItem{
		Post: op("documents", "Search documents", nil, openapi.RequestBodyJSON("PageRequest", true),
			ok("Document page", "DocumentPage")),
	}
	spec.Paths["/documents/{id}"] = &openapi.PathItem{
		Get: op("documents", "Find a document", []*openapi.Parameter{id}, nil,
			ok("Document", "Document"), withError(http.StatusNotFound, notFound)),
		Delete: op("documents", "Delete a document", []*openapi.Parameter{id}, nil,
			noContent(), withError(http.StatusNotFound, notFound)),
	}
	spec.Paths["/documents/{id}/result"] = &openapi.PathItem{
		Get: op("documents", "Find a document's result record", []*openapi.Parameter{id}, nil,
			ok("Result record", "ResultRecord"), withError(http.StatusNotFound, notFound)),
	}

	spec.Paths["/batches"] = &openapi.PathItem{
		Get: op("batches", "List batches", listParams, nil,
			ok("Batch page", "BatchPage")),
		Post: op("batches", "Create a batch", nil, openapi.RequestBodyJSON("CreateBatch", true),
			created("Batch", "Batch"), withError(http.StatusBadRequest, badRequest), withError(http.StatusUnprocessableEntity, unprocessable)),
	}
	spec.Paths["/batches/search"] = &openapi.PathItem{
		Post: op("batches", "Search batches", nil, openapi.RequestBodyJSON("PageRequest", true),
			ok("Batch page", "BatchPage")),
	}
	spec.Paths["/batches/{id}"] = &openapi.PathItem{
		Get: op("batches", "Find a batch", []*openapi.Parameter{id}, nil,
			ok("Batch", "Batch"), withError(http.StatusNotFound, notFound)),
	}
	spec.Paths["/batches/{id}/run"] = &openapi.PathItem{
		Post: op("batches", "Run the batch pipeline", []*openapi.Parameter{id}, nil,
			ok("Batch with summary or failure reason", "Batch"),
			withError(http.StatusNotFound, notFound), withError(http.StatusConflict, conflict), withError(http.StatusBadRequest, badRequest)),
	}
	spec.Paths["/batches/{id}/results"] = &openapi.PathItem{
		Get: op("batches", "List a batch's result records", []*openapi.Parameter{id}, nil,
			map[int]*openapi.Response{http.StatusOK: {
				Description: "Result records",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("ResultRecord")}},
				},
			}}, withError(http.StatusNotFound, notFound)),
	}
	spec.Paths["/batches/{id}/export"] = &openapi.PathItem{
		Get: op("batches", "Export the batch report", []*openapi.Parameter{id}, nil,
			map[int]*openapi.Response{http.StatusOK: {
				Description: "XLSX workbook",
				Content: map[string]*openapi.MediaType{
					"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
				},
			}}, withError(http.StatusNotFound, notFound)),
	}

	spec.Paths["/analyze/{documentId}"] = &openapi.PathItem{
		Post: op("analyze", "Analyze one document", []*openapi.Parameter{
			openapi.PathParam("documentId", "Document ID"),
			openapi.QueryParam("category", "string", "Known category; skips classification", false),
		}, nil, ok("Result record", "ResultRecord"), withError(http.StatusBadRequest, badRequest), withError(http.StatusNotFound, notFound)),
	}

	spec.Paths["/prompts"] = &openapi.PathItem{
		Get: op("prompts", "List stage prompts", nil, nil,
			map[int]*openapi.Response{http.StatusOK: {
				Description: "Prompt entries",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("PromptEntry")}},
				},
			}}),
	}
	spec.Paths["/prompts/{stage}"] = &openapi.PathItem{
		Get: op("prompts", "Find a stage prompt", []*openapi.Parameter{stage}, nil,
			ok("Prompt entry", "PromptEntry"), withError(http.StatusBadRequest, badRequest)),
		Put: op("prompts", "Override a stage's instructions", []*openapi.Parameter{stage}, openapi.RequestBodyJSON("SetPrompt", true),
			ok("Prompt entry", "PromptEntry"), withError(http.StatusBadRequest, badRequest)),
		Delete: op("prompts", "Reset a stage to its default instructions", []*openapi.Parameter{stage}, nil,
			noContent(), withError(http.StatusNotFound, notFound)),
	}

	spec.Paths["/storage/{key}"] = &openapi.PathItem{
		Get: op("storage", "Download a stored blob", []*openapi.Parameter{{
			Name: "key", In: "path", Required: true, Schema: &openapi.Schema{Type: "string"},
		}}, nil, map[int]*openapi.Response{http.StatusOK: {Description: "Blob content"}}, withError(http.StatusNotFound, notFound)),
	}

	return spec
}

func op(
	tag, summary string,
	params []*openapi.Parameter,
	body *openapi.RequestBody,
	responses map[int]*openapi.Response,
	errs ...map[int]*openapi.Response,
) *openapi.Operation {
	for _, e := range errs {
		for code, r := range e {
			responses[code] = r
		}
	}
	return &openapi.Operation{
		Summary:     summary,
		Tags:        []string{tag},
		Parameters:  params,
		RequestBody: body,
		Responses:   responses,
	}
}

func ok(description, schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{http.StatusOK: openapi.ResponseJSON(description, schema)}
}

func created(description, schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{http.StatusCreated: openapi.ResponseJSON(description, schema)}
}

func noContent() map[int]*openapi.Response {
	return map[int]*openapi.Response{http.StatusNoContent: {Description: "Deleted"}}
}

func withError(code int, r *openapi.Response) map[int]*openapi.Response {
	return map[int]*openapi.Response{code: r}
}

func page(item string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(item)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}

func schemas() map[string]*openapi.Schema {
	str := &openapi.Schema{Type: "string"}
	num := &openapi.Schema{Type: "number"}
	uuid := &openapi.Schema{Type: "string", Format: "uuid"}
	stamp := &openapi.Schema{Type: "string", Format: "date-time"}
	strs := &openapi.Schema{Type: "array", Items: str}
	category := &openapi.Schema{
		Type: "string",
		Enum: []any{"meeting_minutes", "diagnostic", "tax_notice", "charges_statement", "unclassified"},
	}

	return map[string]*openapi.Schema{
		"Document": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             uuid,
				"batch_id":       uuid,
				"filename":       str,
				"content_type":   str,
				"size_bytes":     {Type: "integer"},
				"page_count":     {Type: "integer"},
				"storage_key":    str,
				"status":         {Type: "string", Enum: []any{"pending", "processing", "completed", "failed"}},
				"category":       category,
				"confidence":     num,
				"error":          str,
				"uploaded_at":    stamp,
				"updated_at":     stamp,
				"summary":        str,
				"recurring_cost": num,
				"one_time_cost":  num,
			},
		},
		"DocumentPage": page("Document"),
		"ResultRecord": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document_id":    uuid,
				"filename":       str,
				"category":       category,
				"confidence":     num,
				"summary":        str,
				"findings":       strs,
				"recurring_cost": num,
				"one_time_cost":  num,
				"details":        {Type: "object"},
				"skipped":        {Type: "boolean"},
				"error":          str,
				"completed_at":   stamp,
			},
		},
		"BatchSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"batch_id":        uuid,
				"summary":         str,
				"recurring_cost":  num,
				"one_time_cost":   num,
				"risk_level":      {Type: "string", Enum: []any{"low", "medium", "high", "unknown"}},
				"key_findings":    strs,
				"recommendations": strs,
				"categories":      {Type: "object"},
				"errored":         {Type: "array", Items: uuid},
				"degraded":        {Type: "boolean"},
				"document_count":  {Type: "integer"},
				"completed_at":    stamp,
			},
		},
		"Batch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             uuid,
				"label":          str,
				"status":         {Type: "string", Enum: []any{"pending", "running", "completed", "failed"}},
				"summary":        openapi.SchemaRef("BatchSummary"),
				"failure_reason": str,
				"created_at":     stamp,
				"updated_at":     stamp,
				"completed_at":   stamp,
			},
		},
		"BatchPage": page("Batch"),
		"CreateBatch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"label":        str,
				"document_ids": {Type: "array", Items: uuid},
			},
			Required: []string{"label", "document_ids"},
		},
		"PromptEntry": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"stage":        str,
				"instructions": str,
				"spec":         str,
				"overridden":   {Type: "boolean"},
				"updated_at":   stamp,
			},
		},
		"SetPrompt": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"instructions": str,
			},
			Required: []string{"instructions"},
		},
	}
}
