package service

import (
	"reflect"
	"testing"

	"pcstore/internal/model"
)

func TestIntentClassifier_Classify(t *testing.T) {
	classifier := NewIntentClassifier()

	tests := []struct {
		name  string
		text  string
		want  model.Intent
	}{
		{
			name: "gaming PC build",
			text: "I need a gaming PC with RTX 4090 and Ryzen 7. Budget 15000 PLN",
			want: model.Intent{Kind: model.IntentFullBuild, Context: model.ContextGaming},
		},
		{
			name: "polish build",
			text: "Szukam zestawu komputerowego do biura",
			want: model.Intent{Kind: model.IntentFullBuild, Context: model.ContextOffice},
		},
		{
			name: "full build wins over monitor and peripherals",
			text: "complete set with monitor, keyboard and mouse",
			want: model.Intent{Kind: model.IntentFullBuild},
		},
		{
			name: "monitor size",
			text: "27 inch monitor under 1500 PLN",
			want: model.Intent{Kind: model.IntentMonitor},
		},
		{
			name: "polish monitor",
			text: "tani ekran 24 cale",
			want: model.Intent{Kind: model.IntentMonitor},
		},
		{
			name: "single peripheral with context",
			text: "mechanical keyboard for gaming",
			want: model.Intent{Kind: model.IntentPeripheral, Subtype: model.SubtypeKeyboard, Context: model.ContextGaming},
		},
		{
			name: "headset is not a set",
			text: "wireless headset for office calls",
			want: model.Intent{Kind: model.IntentPeripheral, Subtype: model.SubtypeHeadphones, Context: model.ContextOffice},
		},
		{
			name: "multiplicity override",
			text: "keyboard and mouse for gaming",
			want: model.Intent{
				Kind:      model.IntentPeripheral,
				Context:   model.ContextGaming,
				Mentioned: []model.Subtype{model.SubtypeKeyboard, model.SubtypeMouse},
			},
		},
		{
			name: "multiplicity override ignores keyword order",
			text: "mikrofon i kamerka do streamowania",
			want: model.Intent{
				Kind:      model.IntentPeripheral,
				Context:   model.ContextStreaming,
				Mentioned: []model.Subtype{model.SubtypeMicrophone, model.SubtypeWebcam},
			},
		},
		{
			name: "generic peripheral",
			text: "some accessories for streaming",
			want: model.Intent{Kind: model.IntentPeripheral, Context: model.ContextStreaming},
		},
		{
			name: "component by model name",
			text: "looking for an i7 under 2000",
			want: model.Intent{Kind: model.IntentComponent, Subtype: model.SubtypeCPU},
		},
		{
			name: "component scan order prefers CPU over GPU",
			text: "processor and graphics card",
			want: model.Intent{Kind: model.IntentComponent, Subtype: model.SubtypeCPU},
		},
		{
			name: "polish component",
			text: "karta graficzna do gier",
			want: model.Intent{Kind: model.IntentComponent, Subtype: model.SubtypeGPU, Context: model.ContextGaming},
		},
		{
			name: "storage",
			text: "fast NVMe drive 2TB",
			want: model.Intent{Kind: model.IntentComponent, Subtype: model.SubtypeStorage},
		},
		{
			name: "default component",
			text: "what do you recommend?",
			want: model.Intent{Kind: model.IntentComponent},
		},
		{
			name: "empty text",
			text: "   ",
			want: model.Intent{Kind: model.IntentComponent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIntentClassifier_MultiplicityOverrideAlwaysFires(t *testing.T) {
	classifier := NewIntentClassifier()

	pairs := [][2]string{
		{"keyboard", "mouse"},
		{"mouse", "keyboard"},
		{"headphones", "microphone"},
		{"webcam", "speakers"},
		{"microphone", "keyboard"},
	}

	for _, p := range pairs {
		text := p[0] + " plus " + p[1]
		t.Run(text, func(t *testing.T) {
			got := classifier.Classify(text)
			if got.Kind != model.IntentPeripheral || got.Subtype != "" {
				t.Errorf("Classify(%q) = %+v, want peripheral with no subtype", text, got)
			}
			if len(got.Mentioned) != 2 {
				t.Errorf("Mentioned = %v, want two subtypes", got.Mentioned)
			}
		})
	}
}

func TestDetectContextPriority(t *testing.T) {
	tests := []struct {
		text string
		want model.UsageContext
	}{
		{text: "gaming and streaming", want: model.ContextGaming},
		{text: "streaming on twitch after work", want: model.ContextStreaming},
		{text: "do pracy biurowej", want: model.ContextOffice},
		{text: "fast one", want: model.ContextNone},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := DetectContext(tt.text); got != tt.want {
				t.Errorf("DetectContext(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
