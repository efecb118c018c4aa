package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"motorent/config"
)

// NegotiationRequest is a single stateless negotiation turn. The client
// resends the running conversation each turn; nothing is persisted here.
type NegotiationRequest struct {
	CarModel      string   `json:"car_model" binding:"required"`
	DurationHours int      `json:"duration_hours" binding:"required,gt=0"`
	InitialPrice  float64  `json:"initial_price" binding:"required,gt=0"`
	MinPrice      *float64 `json:"min_price"`
	MaxPrice      *float64 `json:"max_price"`
	History       []string `json:"history"`
	Message       string   `json:"message" binding:"required"`
}

// NegotiationResponse is the chatbot's proposal for this turn
type NegotiationResponse struct {
	Reply           string  `json:"reply"`
	NegotiatedPrice float64 `json:"negotiated_price"`
	FinalOffer      bool    `json:"final_offer"`
}

const negotiationSystemPrompt = `You are a price negotiation assistant for a car rental site.
Negotiate the hourly rental price with the customer. Stay within the
configured bounds when given. Respond with a compact JSON object:
{"reply": string, "negotiated_price": number, "final_offer": boolean}.`

// NegotiatePrice runs one chatbot turn against the language model provider.
// A provider failure degrades to an apology with the price unchanged.
func NegotiatePrice(c *gin.Context) {
	var request NegotiationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	fallback := NegotiationResponse{
		Reply:           "Sorry, I couldn't process that right now. Please try again.",
		NegotiatedPrice: request.InitialPrice,
		FinalOffer:      false,
	}

	if config.AppConfig.OpenAIAPIKey == "" {
		c.JSON(http.StatusOK, fallback)
		return
	}

	bounds := "No negotiable bounds are configured; keep the price close to the listed price."
	if request.MinPrice != nil && request.MaxPrice != nil {
		bounds = fmt.Sprintf("Never go below %.2f or above %.2f.", *request.MinPrice, *request.MaxPrice)
	}

	context := fmt.Sprintf("Car: %s. Rental duration: %d hours. Listed hourly price: %.2f. %s",
		request.CarModel, request.DurationHours, request.InitialPrice, bounds)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: negotiationSystemPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: context},
	}
	for _, turn := range request.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: turn,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: request.Message,
	})

	client := openai.NewClient(config.AppConfig.OpenAIAPIKey)
	resp, err := client.CreateChatCompletion(c.Request.Context(), openai.ChatCompletionRequest{
		Model:    config.AppConfig.OpenAIModel,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("Chat provider error: %v", err)
		c.JSON(http.StatusOK, fallback)
		return
	}

	var proposal NegotiationResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &proposal); err != nil {
		log.Printf("Chat response parse error: %v", err)
		c.JSON(http.StatusOK, fallback)
		return
	}

	c.JSON(http.StatusOK, proposal)
}
