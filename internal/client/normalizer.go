package client

import (
	"encoding/json"
	"log"
	"sort"
	"strings"

	"github.com/harmonygenie/api/internal/model"
)

// TaskRecord is the canonical projection of a status payload. The upstream
// API has shipped several response nestings over time; Normalize reconciles
// all of them into this one shape and never fails — an ambiguous payload
// mid-flight must not abort a long-running generation, so the worst case is
// a pending observation with a note.
type TaskRecord struct {
	TaskID string
	Status model.TaskStatus
	Output *model.TrackOutput
	Error  string
}

const defaultTrackTitle = "Generated Song"

// envelope covers the outer shapes: a bare {"message":"success"} ack and
// the {"code":200,"data":{...}} wrapper.
type envelope struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type rawRecord struct {
	TaskID string          `json:"task_id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

type rawOutput struct {
	Clips    json.RawMessage `json:"clips"`
	AudioURL string          `json:"audio_url"`
	Title    string          `json:"title"`
	Lyrics   string          `json:"lyrics"`
	Tags     []string        `json:"tags"`
}

type rawClip struct {
	AudioURL string `json:"audio_url"`
	Title    string `json:"title"`
	Metadata struct {
		Tags string `json:"tags"`
	} `json:"metadata"`
}

// Normalize runs the extraction strategies in order, first match wins:
//
//  1. bare success acknowledgement → pending
//  2. {code:200, data:{...}} wrapper → record from data
//  3. direct {task_id, status} record
//  4. best-effort deep search (keys visited in sorted order per level, so
//     identical payloads always normalize identically)
//  5. fallback: requested id, pending, "unexpected response format"
func Normalize(requestedID string, body []byte) *TaskRecord {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &TaskRecord{
			TaskID: requestedID,
			Status: model.TaskStatusPending,
			Error:  "error parsing response: " + err.Error(),
		}
	}

	// Strategy 1: bare success ack with no status or data.
	if env.Message == "success" && env.Status == "" && !hasValue(env.Data) {
		return &TaskRecord{TaskID: requestedID, Status: model.TaskStatusPending}
	}

	// Strategy 2: standard wrapper.
	if env.Code == 200 && hasValue(env.Data) {
		return recordFrom(requestedID, env.Data)
	}

	// Strategy 3: record at the top level.
	var rec rawRecord
	if err := json.Unmarshal(body, &rec); err == nil && rec.TaskID != "" && rec.Status != "" {
		return recordFrom(requestedID, body)
	}

	// Strategy 4: deep search.
	var tree interface{}
	if err := json.Unmarshal(body, &tree); err == nil {
		taskID := deepString(tree, "task_id")
		status := deepString(tree, "status")
		if taskID != "" && status != "" {
			return &TaskRecord{
				TaskID: taskID,
				Status: mapStatus(taskID, status),
				Output: deepOutput(tree),
				Error:  deepError(tree),
			}
		}
	}

	// Strategy 5: give up, keep polling.
	log.Printf("[PiAPI] Unexpected response format for task %s", requestedID)
	return &TaskRecord{
		TaskID: requestedID,
		Status: model.TaskStatusPending,
		Error:  "unexpected response format",
	}
}

// ExtractTaskID pulls a task id out of a create-task response, trying the
// direct field, the known wrappers, then a deep search.
func ExtractTaskID(body []byte) string {
	var direct struct {
		TaskID string `json:"task_id"`
		Data   struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
		Task struct {
			TaskID string `json:"task_id"`
		} `json:"task"`
		Output struct {
			TaskID string `json:"task_id"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &direct); err == nil {
		switch {
		case direct.TaskID != "":
			return direct.TaskID
		case direct.Data.TaskID != "":
			return direct.Data.TaskID
		case direct.Task.TaskID != "":
			return direct.Task.TaskID
		case direct.Output.TaskID != "":
			return direct.Output.TaskID
		}
	}

	var tree interface{}
	if err := json.Unmarshal(body, &tree); err != nil {
		return ""
	}
	return deepString(tree, "task_id")
}

// recordFrom normalizes a task record fragment (the data object or the
// whole body).
func recordFrom(requestedID string, raw json.RawMessage) *TaskRecord {
	var rec rawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return &TaskRecord{
			TaskID: requestedID,
			Status: model.TaskStatusPending,
			Error:  "error parsing task record: " + err.Error(),
		}
	}

	taskID := rec.TaskID
	if taskID == "" {
		taskID = requestedID
	}

	return &TaskRecord{
		TaskID: taskID,
		Status: mapStatus(taskID, rec.Status),
		Output: projectOutput(rec.Output),
		Error:  errorString(rec.Error),
	}
}

// projectOutput converts the raw output object into a TrackOutput. When a
// clips map is present the first clip in document order wins; otherwise the
// flat audio_url fields are used as-is.
func projectOutput(raw json.RawMessage) *model.TrackOutput {
	if !hasValue(raw) {
		return nil
	}

	var out rawOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}

	if hasValue(out.Clips) {
		if clip, ok := firstClip(out.Clips); ok {
			title := clip.Title
			if title == "" {
				title = defaultTrackTitle
			}
			var tags []string
			if clip.Metadata.Tags != "" {
				tags = strings.Split(clip.Metadata.Tags, ",")
			}
			return &model.TrackOutput{
				AudioURL: clip.AudioURL,
				Title:    title,
				Lyrics:   "", // the upstream API does not return lyrics with clips
				Tags:     tags,
			}
		}
	}

	if out.AudioURL == "" && out.Title == "" && out.Lyrics == "" && len(out.Tags) == 0 {
		return nil
	}
	return &model.TrackOutput{
		AudioURL: out.AudioURL,
		Title:    out.Title,
		Lyrics:   out.Lyrics,
		Tags:     out.Tags,
	}
}

// firstClip returns the first clip in JSON document order. Go maps
// randomize iteration, so the clips object is walked with a token decoder
// to keep the choice deterministic for identical payloads.
func firstClip(clips json.RawMessage) (rawClip, bool) {
	dec := json.NewDecoder(strings.NewReader(string(clips)))

	tok, err := dec.Token()
	if err != nil {
		return rawClip{}, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return rawClip{}, false
	}

	// First key, if any.
	if !dec.More() {
		return rawClip{}, false
	}
	if _, err := dec.Token(); err != nil {
		return rawClip{}, false
	}

	var clip rawClip
	if err := dec.Decode(&clip); err != nil {
		return rawClip{}, false
	}
	return clip, true
}

func mapStatus(taskID, raw string) model.TaskStatus {
	status, known := model.ParseTaskStatus(strings.ToLower(raw))
	if !known {
		log.Printf("[PiAPI] Unknown status %q for task %s, defaulting to pending", raw, taskID)
	}
	return status
}

// errorString accepts both error shapes: a plain string and {"message": ...}.
func errorString(raw json.RawMessage) string {
	if !hasValue(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return strings.TrimSpace(string(raw))
}

func hasValue(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

// deepString finds the first string value under key via depth-first
// traversal. Map keys are visited in sorted order at each level.
func deepString(v interface{}, key string) string {
	switch node := v.(type) {
	case map[string]interface{}:
		if s, ok := node[key].(string); ok && s != "" {
			return s
		}
		for _, k := range sortedKeys(node) {
			if found := deepString(node[k], key); found != "" {
				return found
			}
		}
	case []interface{}:
		for _, item := range node {
			if found := deepString(item, key); found != "" {
				return found
			}
		}
	}
	return ""
}

func deepOutput(v interface{}) *model.TrackOutput {
	node := deepValue(v, "output")
	if node == nil {
		return nil
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil
	}
	return projectOutput(raw)
}

func deepError(v interface{}) string {
	node := deepValue(v, "error")
	if node == nil {
		return ""
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return ""
	}
	return errorString(raw)
}

// deepValue finds the first non-nil value under key, depth first, sorted
// keys per level.
func deepValue(v interface{}, key string) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		if val, ok := node[key]; ok && val != nil {
			return val
		}
		for _, k := range sortedKeys(node) {
			if found := deepValue(node[k], key); found != nil {
				return found
			}
		}
	case []interface{}:
		for _, item := range node {
			if found := deepValue(item, key); found != nil {
				return found
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
