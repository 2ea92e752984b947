package aibudget

import "github.com/radiusdt/budget-intel/internal/models"

// Tree nests ads under ad sets under campaigns.
type Tree struct {
	Campaigns map[string]*CampaignNode `json:"campaigns"`
}

type CampaignNode struct {
	models.ObjectNode
	Adsets map[string]*AdsetNode `json:"adsets"`
}

type AdsetNode struct {
	models.ObjectNode
	Ads map[string]*models.ObjectNode `json:"ads"`
}

// BuildTree links objects through parent_id/grandparent_id. An ad set is
// placed only under its parent campaign; an ad only when its parent ad set
// sits under its grandparent campaign. Orphans are left out.
func BuildTree(objects []models.ObjectNode) *Tree {
	t := &Tree{Campaigns: make(map[string]*CampaignNode)}

	for _, o := range objects {
		if o.ObjectType == models.LevelCampaign {
			t.Campaigns[o.ObjectID] = &CampaignNode{ObjectNode: o, Adsets: make(map[string]*AdsetNode)}
		}
	}
	for _, o := range objects {
		if o.ObjectType != models.LevelAdset {
			continue
		}
		if c, ok := t.Campaigns[o.ParentID]; ok {
			c.Adsets[o.ObjectID] = &AdsetNode{ObjectNode: o, Ads: make(map[string]*models.ObjectNode)}
		}
	}
	for i := range objects {
		o := objects[i]
		if o.ObjectType != models.LevelAd {
			continue
		}
		c, ok := t.Campaigns[o.GrandparentID]
		if !ok {
			continue
		}
		if as, ok := c.Adsets[o.ParentID]; ok {
			as.Ads[o.ObjectID] = &o
		}
	}
	return t
}

// Counts returns the number of campaigns, ad sets and ads in the tree.
func (t *Tree) Counts() (campaigns, adsets, ads int) {
	for _, c := range t.Campaigns {
		campaigns++
		for _, as := range c.Adsets {
			adsets++
			ads += len(as.Ads)
		}
	}
	return campaigns, adsets, ads
}
