package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockInvoker is the part of the Bedrock runtime client used here.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockService implements Generator on Amazon Bedrock. Credentials come from the AWS default chain.
type BedrockService struct {
	client  BedrockInvoker
	modelID string
}

func NewBedrockService(ctx context.Context, region, modelID string) (*BedrockService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewBedrockServiceWithClient(bedrockruntime.NewFromConfig(awsCfg), modelID), nil
}

func NewBedrockServiceWithClient(client BedrockInvoker, modelID string) *BedrockService {
	return &BedrockService{client: client, modelID: modelID}
}

func (s *BedrockService) Name() string {
	return string(ProviderBedrock)
}

func (s *BedrockService) Close() error {
	return nil
}

func (s *BedrockService) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := bedrockRequestBody(s.modelID, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	return bedrockResponseText(s.modelID, resp.Body)
}

func isAnthropicModel(modelID string) bool {
	return strings.Contains(modelID, "anthropic.")
}

func isTitanModel(modelID string) bool {
	return strings.Contains(modelID, "amazon.titan")
}

func bedrockRequestBody(modelID, prompt string) ([]byte, error) {
	switch {
	case isAnthropicModel(modelID):
		return json.Marshal(map[string]interface{}{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        10,
			"temperature":       0,
			"messages": []map[string]interface{}{
				{"role": "user", "content": prompt},
			},
		})
	case isTitanModel(modelID):
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": 10,
				"temperature":   0,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  10,
			"temperature": 0,
		})
	}
}

func bedrockResponseText(modelID string, body []byte) (string, error) {
	switch {
	case isAnthropicModel(modelID):
		var resp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse Claude response: %w", err)
		}
		var sb strings.Builder
		for _, c := range resp.Content {
			if c.Type == "text" {
				sb.WriteString(c.Text)
			}
		}
		if sb.Len() == 0 {
			return "", errors.New("empty Claude response")
		}
		return sb.String(), nil

	case isTitanModel(modelID):
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse Titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return "", errors.New("empty Titan response")
		}
		return resp.Results[0].OutputText, nil

	default:
		var resp struct {
			Completion string `json:"completion"`
			Generation string `json:"generation"`
			Outputs    []struct {
				Text string `json:"text"`
			} `json:"outputs"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse Bedrock response: %w", err)
		}
		switch {
		case resp.Completion != "":
			return resp.Completion, nil
		case resp.Generation != "":
			return resp.Generation, nil
		case len(resp.Outputs) > 0:
			return resp.Outputs[0].Text, nil
		}
		return "", errors.New("empty Bedrock response")
	}
}
