// Package share builds the post a player can publish after a game.
package share

import (
	"fmt"
	"net/url"
)

const intentBase = "https://twitter.com/intent/tweet"

const template = "✨ I just hit %d in Synergy – aligning with the Magnetic Field and building my $MAG energy! ⚡\n\n" +
	"Are you ready to challenge me and embrace the Shift? Align, grow, and dominate! 🌌\n\n" +
	"#Synergy #MAGnetic #AlignYourEnergy\n🎮 GetMag.xyz"

// Text returns the share message for score
func Text(score int) string {
	return fmt.Sprintf(template, score)
}

// IntentURL returns a tweet intent link prefilled with Text(score)
func IntentURL(score int) string {
	return intentBase + "?text=" + url.QueryEscape(Text(score))
}
