package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api/interview/v1"

// Simplified DTOs for the script
type createSessionResponse struct {
	Data struct {
		SessionId     string `json:"session_id"`
		Greeting      string `json:"greeting"`
		FirstQuestion string `json:"first_question"`
		TotalCount    int    `json:"total_count"`
	} `json:"data"`
}

type submitAnswerRequest struct {
	Utterance string `json:"utterance"`
}

type submitAnswerResponse struct {
	Data struct {
		Reply        string `json:"reply"`
		Emotion      string `json:"emotion"`
		Sufficient   bool   `json:"sufficient"`
		NextQuestion string `json:"next_question"`
		Completed    bool   `json:"completed"`
		Closing      string `json:"closing"`
		Progress     struct {
			AnsweredCount int `json:"answered_count"`
			TotalCount    int `json:"total_count"`
		} `json:"progress"`
	} `json:"data"`
}

type summaryResponse struct {
	Data struct {
		FormattedAnswers []struct {
			QuestionText    string `json:"question_text"`
			ExtractedAnswer string `json:"extracted_answer"`
			Confidence      string `json:"confidence"`
		} `json:"formatted_answers"`
		Summary string `json:"summary"`
	} `json:"data"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: simulation <questionnaire-id>")
	}
	questionnaireID := os.Args[1]

	color.Cyan("=== Intake Interview Simulation Client ===")

	sessionID, greeting, firstQuestion, total, err := createSession(questionnaireID)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	color.Green("Session Created: %s (%d questions)", sessionID, total)
	fmt.Println()
	color.Yellow("ASSISTANT: %s", greeting)
	color.Yellow("ASSISTANT: %s", firstQuestion)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("\nYOU: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || line == "/quit" {
			break
		}

		start := time.Now()
		res, err := submitAnswer(sessionID, line)
		elapsed := time.Since(start)

		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		color.Yellow("ASSISTANT (%v, emotion=%s): %s", elapsed.Round(time.Millisecond), res.Data.Emotion, res.Data.Reply)
		color.White("  progress: %d/%d answered", res.Data.Progress.AnsweredCount, res.Data.Progress.TotalCount)

		if res.Data.Completed {
			color.Yellow("ASSISTANT: %s", res.Data.Closing)
			break
		}
	}

	color.Cyan("\n=== Clinical Summary ===")
	if err := printSummary(sessionID); err != nil {
		color.Red("Failed to fetch summary: %v", err)
	}
}

func createSession(questionnaireID string) (string, string, string, int, error) {
	payload := map[string]string{"questionnaire_id": questionnaireID}
	jsonBytes, _ := json.Marshal(payload)

	resp, err := http.Post(baseURL+"/session", "application/json", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return "", "", "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", "", "", 0, fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", "", "", 0, err
	}
	return res.Data.SessionId, res.Data.Greeting, res.Data.FirstQuestion, res.Data.TotalCount, nil
}

func submitAnswer(sessionID, utterance string) (*submitAnswerResponse, error) {
	payload := submitAnswerRequest{Utterance: utterance}
	jsonBytes, _ := json.Marshal(payload)

	resp, err := http.Post(baseURL+"/session/"+sessionID+"/answer", "application/json", bytes.NewBuffer(jsonBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res submitAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func printSummary(sessionID string) error {
	resp, err := http.Get(baseURL + "/session/" + sessionID + "/summary")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return err
	}

	for _, fa := range res.Data.FormattedAnswers {
		color.White("Q: %s", fa.QuestionText)
		if fa.Confidence == "low" {
			color.Red("A: %s (confidence: %s)", fa.ExtractedAnswer, fa.Confidence)
		} else {
			color.Green("A: %s (confidence: %s)", fa.ExtractedAnswer, fa.Confidence)
		}
	}
	fmt.Println()
	color.Cyan("Narrative: %s", res.Data.Summary)
	return nil
}
