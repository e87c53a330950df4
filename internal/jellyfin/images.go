// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package jellyfin

import "net/url"

// Image types resolved for every synced movie.
const (
	imageTypePrimary = "Primary"
	imageTypeLogo    = "Logo"
)

// ResolveImageURLs derives the three image URLs for an item from its
// image-tag map. A type with no tag on the remote item yields nil, never
// a guessed URL. Backdrops use the separate backdrop tag list and always
// reference index 0.
func (c *Client) ResolveImageURLs(item *Item) (poster, backdrop, logo *string) {
	baseURL, _, _ := c.snapshot()
	if baseURL == "" || item == nil {
		return nil, nil, nil
	}

	if tag, ok := item.ImageTags[imageTypePrimary]; ok && tag != "" {
		poster = imageURL(baseURL, item.ID, "Primary", tag)
	}
	if tag, ok := item.ImageTags[imageTypeLogo]; ok && tag != "" {
		logo = imageURL(baseURL, item.ID, "Logo", tag)
	}
	if len(item.BackdropImageTags) > 0 && item.BackdropImageTags[0] != "" {
		backdrop = imageURL(baseURL, item.ID, "Backdrop/0", item.BackdropImageTags[0])
	}

	return poster, backdrop, logo
}

func imageURL(baseURL, itemID, imagePath, tag string) *string {
	u := baseURL + "/Items/" + itemID + "/Images/" + imagePath + "?tag=" + url.QueryEscape(tag)
	return &u
}
