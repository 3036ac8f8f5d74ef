package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func serializeGraphqlQueryObject(name, query string, variables map[string]any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"operationName": name,
		"query":         query,
		"variables":     variables,
	})
}

func deserializeGraphqlResponseObject(response []byte, out any) error {
	var result struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	err := json.Unmarshal(response, &result)
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("graphql: %s", result.Errors[0].Message)
	}

	return json.Unmarshal(result.Data, out)
}

func graphqlQuery(
	ctx context.Context,
	client *resty.Client,
	endpoint,
	name,
	query string,
	variables map[string]any,
	output any,
) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("graphql:%s", name))
	defer span.End()

	serialized, err := json.Marshal(variables)
	if err == nil {
		span.SetAttributes(attribute.String("variables", string(serialized)))
	}

	body, err := serializeGraphqlQueryObject(name, query, variables)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize json query")
		return err
	}

	res, err := client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("graphql endpoint returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "non-success response")
		return err
	}

	err = deserializeGraphqlResponseObject(res.Body(), output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse json response")
		return err
	}

	return nil
}
