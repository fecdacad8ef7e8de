package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/yyya-nico/AnySound-Sequencer/internal/audio"
	"github.com/yyya-nico/AnySound-Sequencer/internal/midi"
	"github.com/yyya-nico/AnySound-Sequencer/internal/sequence"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MIDI export and WAV rendering over HTTP",
	Long: `Serve the converter over HTTP for editor front-ends.

POST /export/midi  sequence JSON in, Standard MIDI File bytes out
POST /import/midi  MIDI bytes in, sequence JSON out
POST /render/wav   sequence JSON in, 16-bit WAV bytes out`,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/export/midi", handleExportMIDI).Methods("POST")
	router.HandleFunc("/import/midi", handleImportMIDI).Methods("POST")
	router.HandleFunc("/render/wav", handleRenderWAV).Methods("POST")

	handler := cors.Default().Handler(router)
	log.Printf("listening on %s", serveAddr)
	log.Fatal(http.ListenAndServe(serveAddr, handler))
}

func decodeSequence(w http.ResponseWriter, r *http.Request) *sequence.Sequence {
	var seq sequence.Sequence
	if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
		http.Error(w, "invalid sequence JSON: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	return &seq
}

func handleExportMIDI(w http.ResponseWriter, r *http.Request) {
	seq := decodeSequence(w, r)
	if seq == nil {
		return
	}
	f := midi.FromSequence(seq.Notes, seq.Beats, seq.TempoOrDefault()[0].BPM, 480)
	w.Header().Set("Content-Type", "audio/midi")
	if _, err := w.Write(f.Bytes()); err != nil {
		log.Printf("export response write failed: %v", err)
	}
}

func handleImportMIDI(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	f, err := midi.Parse(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	seq := midi.ToSequence(f)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(seq); err != nil {
		log.Printf("import response write failed: %v", err)
	}
}

func handleRenderWAV(w http.ResponseWriter, r *http.Request) {
	seq := decodeSequence(w, r)
	if seq == nil {
		return
	}

	cfg, err := buildRenderConfig(seq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rendered, err := audio.Render(r.Context(), seq.Notes, seq.Beats, seq.TempoOrDefault(), cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	progressCh, resultCh := audio.StartEncode(rendered)
	for range progressCh {
		// no consumer for progress over plain HTTP
	}
	res := <-resultCh
	if res.Err != nil {
		http.Error(w, res.Err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprint(len(res.Data)))
	if _, err := w.Write(res.Data); err != nil {
		log.Printf("render response write failed: %v", err)
	}
}
