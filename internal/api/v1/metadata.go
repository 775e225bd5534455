package v1

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/peskas/gateway/internal/domain"
	"github.com/peskas/gateway/internal/schema"
)

type ListMetadataOutput struct {
	Body struct {
		DatasetTypes []string `json:"dataset_types" doc:"Available dataset type names"`
	}
}

type GetDatasetMetadataInput struct {
	Dataset string `path:"dataset" doc:"Dataset type name"`
	Scope   string `query:"scope" doc:"Optional scope name to filter fields"`
}

type DatasetMetadata struct {
	DatasetType string                  `json:"dataset_type"`
	Description string                  `json:"description"`
	Fields      map[string]domain.Field `json:"fields"`
}

type GetDatasetMetadataOutput struct {
	Body DatasetMetadata
}

type GetFieldMetadataInput struct {
	Dataset string `path:"dataset" doc:"Dataset type name"`
	Field   string `path:"field" doc:"Field name"`
}

type GetFieldMetadataOutput struct {
	Body domain.Field
}

// RegisterMetadataRoutes mounts the field metadata discovery endpoints.
// These serve the static catalog: descriptions, data kinds, units, possible
// values, and ontology references per field.
func RegisterMetadataRoutes(api huma.API, registry *schema.Registry) {
	huma.Register(api, huma.Operation{
		OperationID: "list-dataset-types",
		Method:      http.MethodGet,
		Path:        "/metadata",
		Summary:     "List available dataset types",
		Tags:        []string{"Metadata"},
	}, func(_ context.Context, _ *struct{}) (*ListMetadataOutput, error) {
		out := &ListMetadataOutput{}
		out.Body.DatasetTypes = registry.Names()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dataset-metadata",
		Method:      http.MethodGet,
		Path:        "/metadata/{dataset}",
		Summary:     "Get dataset field metadata",
		Tags:        []string{"Metadata"},
	}, func(_ context.Context, input *GetDatasetMetadataInput) (*GetDatasetMetadataOutput, error) {
		desc, ok := registry.Dataset(input.Dataset)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf(
				"dataset type %q not found (available: %s)",
				input.Dataset, strings.Join(registry.Names(), ", ")))
		}

		columns := desc.ColumnNames()
		if input.Scope != "" {
			scopeCols, ok := desc.ScopeColumns(input.Scope)
			if !ok {
				valid := desc.ScopeNames()
				sort.Strings(valid)
				return nil, huma.Error400BadRequest(fmt.Sprintf(
					"invalid scope %q for dataset type %q (available: %s)",
					input.Scope, input.Dataset, strings.Join(valid, ", ")))
			}
			columns = scopeCols
		}

		fields := make(map[string]domain.Field, len(columns))
		for _, c := range columns {
			if f, ok := desc.Field(c); ok {
				fields[c] = f
			}
		}

		return &GetDatasetMetadataOutput{Body: DatasetMetadata{
			DatasetType: desc.Name,
			Description: desc.Description,
			Fields:      fields,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-field-metadata",
		Method:      http.MethodGet,
		Path:        "/metadata/{dataset}/fields/{field}",
		Summary:     "Get single field metadata",
		Tags:        []string{"Metadata"},
	}, func(_ context.Context, input *GetFieldMetadataInput) (*GetFieldMetadataOutput, error) {
		desc, ok := registry.Dataset(input.Dataset)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf(
				"dataset type %q not found (available: %s)",
				input.Dataset, strings.Join(registry.Names(), ", ")))
		}

		field, ok := desc.Field(input.Field)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf(
				"field %q not found in dataset type %q (available: %s)",
				input.Field, input.Dataset, strings.Join(desc.ColumnNames(), ", ")))
		}

		return &GetFieldMetadataOutput{Body: field}, nil
	})
}
