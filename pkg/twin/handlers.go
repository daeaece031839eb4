package twin

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/providers/audio"
	"github.com/harunnryd/skillcall/pkg/redact"
)

const maxUpload = 10 << 20

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"languages": s.bank.Menu()})
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	var req backend.QuestionsRequest
	if !decode(w, r, &req) {
		return
	}
	lang, ok := s.bank.Language(req.LanguageKey)
	if !ok {
		Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid language key. Choose 1-%d.", len(s.bank.Languages)))
		return
	}
	JSON(w, http.StatusOK, backend.QuestionsResponse{
		Language:  lang.Name,
		Greeting:  lang.Greeting,
		Questions: s.bank.Questions(lang),
	})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req backend.TTSRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "TTS failed: empty text")
		return
	}
	mp3 := audio.Silence(speechDuration(req.Text))
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(mp3)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req backend.TranslateRequest
	if !decode(w, r, &req) {
		return
	}
	translated := req.Text
	if req.SourceLanguage != "English" {
		translated = s.bank.Translate(req.Text)
	}
	JSON(w, http.StatusOK, backend.TranslateResponse{Translated: translated, Original: req.Text})
}

func (s *Server) handleGenerateOTP(w http.ResponseWriter, r *http.Request) {
	var req backend.GenerateOTPRequest
	if !decode(w, r, &req) {
		return
	}
	otp := fmt.Sprintf("%06d", 100000+rand.IntN(900000))
	s.mu.Lock()
	s.otps[req.Phone] = &otpRecord{otp: otp, last4: req.AadhaarLast4}
	s.mu.Unlock()
	s.log.Info("twin_otp_generated", slog.String("phone", redact.Phone(req.Phone)))
	JSON(w, http.StatusOK, backend.GenerateOTPResponse{
		Success: true,
		DemoOTP: otp,
		Message: "OTP sent to Aadhaar-registered mobile for last-4 digits " + req.AadhaarLast4,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req backend.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.otps[req.Phone]
	if !ok {
		Error(w, http.StatusBadRequest, "No OTP found for this phone. Please generate OTP first.")
		return
	}
	if rec.otp != strings.TrimSpace(req.OTP) {
		JSON(w, http.StatusOK, backend.VerifyOTPResponse{Verified: false, Message: "OTP does not match. Please try again."})
		return
	}
	rec.verified = true
	JSON(w, http.StatusOK, backend.VerifyOTPResponse{Verified: true, Message: "Aadhaar identity verified successfully."})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req backend.ExtractRequest
	if !decode(w, r, &req) {
		return
	}
	JSON(w, http.StatusOK, backend.ExtractResponse{
		Success:    true,
		Language:   req.Language,
		Transcript: s.bank.transcript(req.Answers),
		Profile:    s.bank.extract(req.Language, req.Answers),
	})
}

// handleVoiceAnswer accepts a recorded answer and returns the bank's sample
// answer for the question. The OTP question is answered with the OTP last
// generated for the phone.
func (s *Server) handleVoiceAnswer(w http.ResponseWriter, r *http.Request) {
	if s.opts.VoiceDisabled {
		Error(w, http.StatusServiceUnavailable, "AI service unavailable. Use text input instead.")
		return
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		Error(w, http.StatusUnprocessableEntity, "invalid multipart body: "+err.Error())
		return
	}
	phone := r.FormValue("phone")
	key := r.FormValue("question_key")
	if phone == "" || key == "" || r.FormValue("language") == "" {
		Error(w, http.StatusUnprocessableEntity, "phone, language and question_key are required")
		return
	}
	file, hdr, err := r.FormFile("audio")
	if err != nil {
		Error(w, http.StatusUnprocessableEntity, "audio file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		Error(w, http.StatusInternalServerError, "Transcription failed: empty audio")
		return
	}
	if err := checkContainer(hdr.Filename, data); err != nil {
		Error(w, http.StatusInternalServerError, "Transcription failed: "+err.Error())
		return
	}

	transcript := s.bank.Samples[key]
	if key == "aadhaar_otp" {
		s.mu.Lock()
		if rec, ok := s.otps[phone]; ok {
			transcript = rec.otp
		}
		s.mu.Unlock()
	}
	JSON(w, http.StatusOK, backend.VoiceAnswerResponse{QuestionKey: key, Transcript: transcript})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		Error(w, http.StatusUnprocessableEntity, "phone query parameter is required")
		return
	}
	var profile backend.Profile
	if !decode(w, r, &profile) {
		return
	}

	s.mu.Lock()
	worker, ok := s.workers[phone]
	if !ok {
		worker = Worker{ID: uuid.NewString(), Phone: phone}
	}
	if name := profile.Name(); name != "" {
		worker.Name = name
	}
	worker.Profile = profile
	worker.SavedAt = time.Now()
	s.workers[phone] = worker
	s.mu.Unlock()

	display := worker.Name
	if display == "" {
		display = phone
	}
	s.log.Info("twin_profile_saved", slog.String("worker_id", worker.ID), slog.String("phone", redact.Phone(phone)))
	JSON(w, http.StatusOK, backend.SaveResponse{
		Success:  true,
		WorkerID: worker.ID,
		Message:  "Profile saved for " + display,
	})
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"workers": s.Workers()})
}

// handleFault sets or clears an injected fault: {"endpoint": "translate", "status": 500}.
func (s *Server) handleFault(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
		Status   int    `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Endpoint == "" || (req.Status != 0 && (req.Status < 400 || req.Status > 599)) {
		Error(w, http.StatusBadRequest, "endpoint and a 4xx/5xx status (or 0 to clear) are required")
		return
	}
	s.SetFault(req.Endpoint, req.Status)
	JSON(w, http.StatusOK, map[string]any{"endpoint": req.Endpoint, "status": req.Status})
}
