// Package openairt provides a client for OpenAI's Realtime API over
// WebSocket, shaped for telephony voice bridging.
//
// A session streams caller audio up and receives synthesized speech back as
// incremental events. Connect, configure the session, then consume events:
//
//	client := openairt.NewClient(apiKey)
//	session, err := client.Connect(ctx, &openairt.ConnectConfig{
//	    Model: openairt.ModelGPT4oRealtimePreview,
//	})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	err = session.UpdateSession(&openairt.SessionConfig{
//	    Voice:             openairt.VoiceAlloy,
//	    Instructions:      "You are a helpful phone assistant.",
//	    InputAudioFormat:  openairt.AudioFormatG711ULaw,
//	    OutputAudioFormat: openairt.AudioFormatG711ULaw,
//	    TurnDetection:     &openairt.TurnDetection{Type: openairt.VADServerVAD},
//	})
//
//	for event, err := range session.Events() {
//	    if err != nil {
//	        return err
//	    }
//	    switch event.Type {
//	    case openairt.EventTypeResponseAudioDelta:
//	        play(event.Delta)
//	    case openairt.EventTypeInputAudioBufferSpeechStarted:
//	        interrupt()
//	    }
//	}
//
// Audio payloads are base64 strings relayed byte-for-byte; the package never
// transcodes. G.711 mu-law at 8kHz is the format used for narrowband phone
// audio.
package openairt
