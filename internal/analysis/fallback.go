package analysis

import (
	"math/rand/v2"
	"strings"
)

// Suggestion is one locally sourced song/quote/tip triple, substituted when
// the model output carries no usable advice.
type Suggestion struct {
	Song  string
	Quote string
	Tip   string
}

type bucket struct {
	songs  []string
	quotes []string
	tips   []string
}

var library = map[string]bucket{
	"anxiety": {
		songs: []string{
			"\"Weightless\" — Marconi Union",
			"\"Breathe Me\" — Sia",
			"\"Holocene\" — Bon Iver",
		},
		quotes: []string{
			"\"You don't have to control your thoughts. You just have to stop letting them control you.\" — Dan Millman",
			"\"Nothing diminishes anxiety faster than action.\" — Walter Anderson",
			"\"Almost everything will work again if you unplug it for a few minutes, including you.\" — Anne Lamott",
		},
		tips: []string{
			"Try box breathing: inhale 4 counts, hold 4, exhale 4, hold 4. Repeat five times.",
			"Write down the one worry that is loudest right now, then note one small thing you can do about it tomorrow.",
			"Step outside for two minutes and name five things you can see.",
		},
	},
	"sadness": {
		songs: []string{
			"\"Here Comes the Sun\" — The Beatles",
			"\"Fix You\" — Coldplay",
			"\"The Night We Met\" — Lord Huron",
		},
		quotes: []string{
			"\"The wound is the place where the Light enters you.\" — Rumi",
			"\"Even the darkest night will end and the sun will rise.\" — Victor Hugo",
			"\"Tears are words that need to be written.\" — Paulo Coelho",
		},
		tips: []string{
			"Let yourself feel it for ten minutes, then do one small kind thing for yourself.",
			"Message someone who makes you feel seen, even just to say hello.",
			"Make a warm drink and sit somewhere comfortable without your phone.",
		},
	},
	"joy": {
		songs: []string{
			"\"Good as Hell\" — Lizzo",
			"\"Walking on Sunshine\" — Katrina and the Waves",
			"\"Three Little Birds\" — Bob Marley",
		},
		quotes: []string{
			"\"Find ecstasy in life; the mere sense of living is joy enough.\" — Emily Dickinson",
			"\"Joy is not in things; it is in us.\" — Richard Wagner",
			"\"Happiness is only real when shared.\" — Christopher McCandless",
		},
		tips: []string{
			"Write down what made today good so future-you can find it again.",
			"Share the good news with someone who will celebrate with you.",
			"Take a photo of something that captures how today felt.",
		},
	},
	"anger": {
		songs: []string{
			"\"Let It Go\" — James Bay",
			"\"Shake It Out\" — Florence + The Machine",
			"\"Breathin\" — Ariana Grande",
		},
		quotes: []string{
			"\"For every minute you remain angry, you give up sixty seconds of peace of mind.\" — Ralph Waldo Emerson",
			"\"Speak when you are angry and you will make the best speech you will ever regret.\" — Ambrose Bierce",
			"\"Holding on to anger is like grasping a hot coal.\" — attributed to the Buddha",
		},
		tips: []string{
			"Write the angry version first, then wait an hour before deciding whether to send anything.",
			"Go for a brisk ten-minute walk before revisiting what set you off.",
			"Name what boundary was crossed; anger usually points at one.",
		},
	},
	"loneliness": {
		songs: []string{
			"\"Lean on Me\" — Bill Withers",
			"\"You've Got a Friend\" — Carole King",
			"\"Vienna\" — Billy Joel",
		},
		quotes: []string{
			"\"The eternal quest of the human being is to shatter his loneliness.\" — Norman Cousins",
			"\"Loneliness is not lack of company, loneliness is lack of purpose.\" — Guillermo Maldonado",
			"\"We are all so much together, but we are all dying of loneliness.\" — Albert Schweitzer",
		},
		tips: []string{
			"Send one low-stakes message today — a meme, a question, a thank-you.",
			"Work or read in a public place tomorrow; shared space counts.",
			"Plan one small social thing for this week and put it on the calendar.",
		},
	},
	"fear": {
		songs: []string{
			"\"Brave\" — Sara Bareilles",
			"\"The Climb\" — Miley Cyrus",
			"\"Don't Panic\" — Coldplay",
		},
		quotes: []string{
			"\"Everything you want is on the other side of fear.\" — Jack Canfield",
			"\"Fear is only as deep as the mind allows.\" — Japanese proverb",
			"\"Courage is resistance to fear, mastery of fear — not absence of fear.\" — Mark Twain",
		},
		tips: []string{
			"Write down the feared outcome, then the most likely outcome. Compare them.",
			"Break the scary thing into the smallest possible first step and do only that.",
			"Tell one person what you're afraid of; fear shrinks when spoken.",
		},
	},
	"stress": {
		songs: []string{
			"\"Clair de Lune\" — Debussy",
			"\"Banana Pancakes\" — Jack Johnson",
			"\"Sunday Morning\" — Maroon 5",
		},
		quotes: []string{
			"\"It's not the load that breaks you down, it's the way you carry it.\" — Lou Holtz",
			"\"You can do anything, but not everything.\" — David Allen",
			"\"Take rest; a field that has rested gives a bountiful crop.\" — Ovid",
		},
		tips: []string{
			"Write tomorrow's top three tasks tonight, then stop planning.",
			"Set a timer for a 5-minute tidy-up of your workspace; small order calms.",
			"Trade one obligation this week for one hour of nothing.",
		},
	},
	DefaultEmotion: {
		songs: []string{
			"\"Budapest\" — George Ezra",
			"\"Put Your Records On\" — Corinne Bailey Rae",
			"\"Riptide\" — Vance Joy",
		},
		quotes: []string{
			"\"The quieter you become, the more you can hear.\" — Ram Dass",
			"\"Ordinary days deserve gratitude too.\" — Anonymous",
			"\"Wherever you are, be all there.\" — Jim Elliot",
		},
		tips: []string{
			"Note one small thing you noticed today that you usually miss.",
			"Take a slow walk without a destination tomorrow.",
			"Try writing three lines tomorrow even if nothing feels noteworthy.",
		},
	},
}

// FallbackSuggestion selects one song, quote, and tip uniformly at random
// from the bucket for the given emotion label. Unrecognized labels use the
// neutrality bucket. Selection is intentionally unseeded so repeated
// fallbacks don't go stale.
func FallbackSuggestion(emotion string) Suggestion {
	b, ok := library[strings.ToLower(strings.TrimSpace(emotion))]
	if !ok {
		b = library[DefaultEmotion]
	}
	return Suggestion{
		Song:  b.songs[rand.IntN(len(b.songs))],
		Quote: b.quotes[rand.IntN(len(b.quotes))],
		Tip:   b.tips[rand.IntN(len(b.tips))],
	}
}

// Render formats the triple as suggestion text.
func (s Suggestion) Render() string {
	return "Song: " + s.Song + "\n\nQuote: " + s.Quote + "\n\nTip: " + s.Tip
}
